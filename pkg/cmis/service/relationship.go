package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

func (s *service) GetObjectRelationships(ctx context.Context, req cmis.GetRelationshipsRequest) (list *cmis.ObjectList, err error) {
	defer s.track("getObjectRelationships", req.ObjectID, time.Now(), &err)
	if err := checkPaging(req.MaxItems, req.SkipCount); err != nil {
		return nil, err
	}
	switch req.Direction {
	case "", cmis.RelationshipDirectionSource, cmis.RelationshipDirectionTarget, cmis.RelationshipDirectionEither:
	default:
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "unknown relationship direction %q", req.Direction)
	}
	if req.TypeID != "" {
		td, err := s.types.Type(req.TypeID)
		if err != nil {
			return nil, err
		}
		if td.BaseID != cmis.BaseTypeRelationship {
			return nil, cmis.Errorf(cmis.KindInvalidArgument, "type %s is not a relationship type", req.TypeID)
		}
	}

	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := tx.Get(req.ObjectID)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionRead); err != nil {
			return err
		}
		var rels []*memory.Relationship
		for _, rel := range tx.Relationships(req.ObjectID) {
			if !matchesDirection(rel, req.ObjectID, req.Direction) || !s.matchesType(rel.TypeID, req.TypeID, req.IncludeSubRelationshipTypes) {
				continue
			}
			if tx.HasReadAccess(user, rel) {
				rels = append(rels, rel)
			}
		}
		selected, more := page(rels, req.MaxItems, req.SkipCount)
		list = &cmis.ObjectList{Objects: make([]*cmis.ObjectData, 0, len(selected)), HasMoreItems: more, NumItems: len(rels)}
		for _, rel := range selected {
			list.Objects = append(list.Objects, s.objectData(tx, rel, user, cmis.GetObjectOptions{Filter: req.Filter}))
		}
		return nil
	})
	return list, err
}

func (s *service) matchesType(typeID, want string, includeSubtypes bool) bool {
	switch {
	case want == "":
		return true
	case includeSubtypes:
		return s.types.IsSubtypeOf(typeID, want)
	default:
		return typeID == want
	}
}
