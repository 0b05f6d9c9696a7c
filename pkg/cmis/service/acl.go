package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

// aclChange computes a new ACL from the current one.
type aclChange func(current cmis.Acl) cmis.Acl

// mergeAcl adds the entries of add, raising existing rows, and then drops
// the rows of every principal in remove.
func mergeAcl(add, remove cmis.Acl) aclChange {
	add = cmis.NewAcl(add.Aces...)
	return func(current cmis.Acl) cmis.Acl {
		return current.Merge(add).Remove(remove)
	}
}

// replaceAcl makes acl authoritative.
func replaceAcl(acl cmis.Acl) aclChange {
	acl = cmis.NewAcl(acl.Aces...)
	return func(cmis.Acl) cmis.Acl {
		return acl
	}
}

// applyAclChange applies change to the ACL of obj and returns the new ACL.
func applyAclChange(tx *memory.Tx, obj memory.StoredObject, change aclChange) (cmis.Acl, error) {
	current, err := tx.Acl(tx.ObjectAclID(obj))
	if err != nil {
		return cmis.Acl{}, err
	}
	next := change(current)
	id, err := tx.AclID(next)
	if err != nil {
		return cmis.Acl{}, err
	}
	if err := tx.SetObjectAclID(obj, id); err != nil {
		return cmis.Acl{}, err
	}
	return tx.Acl(id)
}

func checkPropagation(p cmis.AclPropagation) (cmis.AclPropagation, error) {
	switch p {
	case "":
		return cmis.AclPropagationRepositoryDetermined, nil
	case cmis.AclPropagationObjectOnly, cmis.AclPropagationPropagate, cmis.AclPropagationRepositoryDetermined:
		return p, nil
	}
	return "", cmis.Errorf(cmis.KindInvalidArgument, "unknown ACL propagation %q", p)
}

func (s *service) GetAcl(ctx context.Context, objectID string) (acl *cmis.Acl, err error) {
	defer s.track("getAcl", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := getReadable(tx, objectID, user)
		if err != nil {
			return err
		}
		current, err := tx.Acl(tx.ObjectAclID(obj))
		if err != nil {
			return err
		}
		acl = &current
		return nil
	})
	return acl, err
}

func (s *service) ApplyAcl(ctx context.Context, objectID string, add, remove cmis.Acl, propagation cmis.AclPropagation) (result *cmis.AclResult, err error) {
	defer s.track("applyAcl", objectID, time.Now(), &err)
	return s.changeAcl(ctx, objectID, mergeAcl(add, remove), propagation)
}

func (s *service) SetAcl(ctx context.Context, objectID string, acl cmis.Acl, propagation cmis.AclPropagation) (result *cmis.AclResult, err error) {
	defer s.track("setAcl", objectID, time.Now(), &err)
	return s.changeAcl(ctx, objectID, replaceAcl(acl), propagation)
}

// changeAcl applies change to an object. On folders, unless propagation
// is object-only, the change is also applied to every descendant on which
// the principal holds cmis:all; the others are reported as skipped.
func (s *service) changeAcl(ctx context.Context, objectID string, change aclChange, propagation cmis.AclPropagation) (result *cmis.AclResult, err error) {
	if propagation, err = checkPropagation(propagation); err != nil {
		return nil, err
	}
	user := cmis.PrincipalFrom(ctx)
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, err := tx.Get(objectID)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionAll); err != nil {
			return err
		}
		acl, err := applyAclChange(tx, obj, change)
		if err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeSecurity, obj)
		result = &cmis.AclResult{Acl: acl}

		folder, isFolder := obj.(*memory.Folder)
		if !isFolder || propagation == cmis.AclPropagationObjectOnly {
			return nil
		}
		seen := map[string]struct{}{folder.ID: {}}
		var walk func(f *memory.Folder) error
		walk = func(f *memory.Folder) error {
			for _, child := range tx.Children(f) {
				id := child.Base().ID
				if _, done := seen[id]; done {
					continue
				}
				seen[id] = struct{}{}
				if tx.HasAllAccess(user, child) {
					if _, err := applyAclChange(tx, child, change); err != nil {
						return err
					}
					ch.add(cmis.ChangeTypeSecurity, child)
				} else {
					result.SkippedIDs = append(result.SkippedIDs, id)
				}
				if sub, ok := child.(*memory.Folder); ok {
					if err := walk(sub); err != nil {
						return err
					}
				}
			}
			return nil
		}
		return walk(folder)
	})
	if err != nil {
		return nil, err
	}
	if len(result.SkippedIDs) > 0 {
		s.logger.Warn("acl propagation skipped objects", "object_id", objectID, "skipped", len(result.SkippedIDs), "user", user)
	}
	return result, nil
}
