package service

import (
	"context"
	"strconv"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

func (s *service) repositoryInfo(ctx context.Context) *cmis.RepositoryInfo {
	info := s.info
	info.VendorName = "simple-cmis"
	info.ProductName = "simple-cmis"
	info.ProductVersion = Version
	info.CMISVersionSupported = "1.1"
	info.RootFolderID = s.store.RootID()
	info.PrincipalAnonymous = cmis.PrincipalAnonymous
	info.PrincipalAnyone = cmis.PrincipalAnyone
	info.Capabilities = cmis.RepositoryCapabilities{
		ACL:                   cmis.CapabilityACLManage,
		Query:                 "none",
		Renditions:            "none",
		Changes:               cmis.CapabilityChangesNone,
		ContentStreamUpdates:  s.contentUpdates,
		GetDescendants:        true,
		GetFolderTree:         true,
		Multifiling:           true,
		Unfiling:              true,
		VersionSpecificFiling: false,
		PWCUpdatable:          true,
	}
	if s.changeLog != nil {
		info.Capabilities.Changes = cmis.CapabilityChangesObjectIDsOnly
		if token, err := s.changeLog.LatestToken(ctx); err == nil {
			info.LatestChangeLogToken = strconv.FormatInt(token, 10)
		} else {
			s.logger.Warn("failed to read latest change token", "error", err)
		}
	}
	return &info
}

func (s *service) GetRepositoryInfos(ctx context.Context) ([]*cmis.RepositoryInfo, error) {
	return []*cmis.RepositoryInfo{s.repositoryInfo(ctx)}, nil
}

func (s *service) GetRepositoryInfo(ctx context.Context, repositoryID string) (info *cmis.RepositoryInfo, err error) {
	defer s.track("getRepositoryInfo", repositoryID, time.Now(), &err)
	if repositoryID != "" && repositoryID != s.info.ID {
		return nil, cmis.Errorf(cmis.KindObjectNotFound, "repository %s not found", repositoryID)
	}
	return s.repositoryInfo(ctx), nil
}

// Type operations

func (s *service) GetTypeDefinition(ctx context.Context, typeID string) (td *cmis.TypeDefinition, err error) {
	defer s.track("getTypeDefinition", typeID, time.Now(), &err)
	if typeID == "" {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "type id is required")
	}
	return s.types.Type(typeID)
}

func (s *service) GetTypeChildren(ctx context.Context, typeID string, includePropertyDefinitions bool, maxItems, skipCount int) (list *cmis.TypeDefinitionList, err error) {
	defer s.track("getTypeChildren", typeID, time.Now(), &err)
	if err := checkPaging(maxItems, skipCount); err != nil {
		return nil, err
	}

	var children []*cmis.TypeDefinition
	if typeID == "" {
		children = s.types.BaseTypes()
	} else if children, err = s.types.Children(typeID); err != nil {
		return nil, err
	}
	if !includePropertyDefinitions {
		for i, td := range children {
			children[i] = td.WithoutPropertyDefinitions()
		}
	}

	selected, more := page(children, maxItems, skipCount)
	return &cmis.TypeDefinitionList{Types: selected, HasMoreItems: more, NumItems: len(children)}, nil
}

func (s *service) GetTypeDescendants(ctx context.Context, typeID string, depth int, includePropertyDefinitions bool) (tree []*cmis.TypeDefinitionContainer, err error) {
	defer s.track("getTypeDescendants", typeID, time.Now(), &err)
	tree, err = s.types.Descendants(typeID, depth)
	if err != nil {
		return nil, err
	}
	if !includePropertyDefinitions {
		stripDefinitions(tree)
	}
	return tree, nil
}

func stripDefinitions(tree []*cmis.TypeDefinitionContainer) {
	for _, c := range tree {
		c.Type = c.Type.WithoutPropertyDefinitions()
		stripDefinitions(c.Children)
	}
}

func (s *service) CreateType(ctx context.Context, def *cmis.TypeDefinition) (td *cmis.TypeDefinition, err error) {
	id := ""
	if def != nil {
		id = def.ID
	}
	defer s.track("createType", id, time.Now(), &err)
	if err := s.types.AddType(def); err != nil {
		return nil, err
	}
	s.logger.Info("type created", "type_id", def.ID, "parent_id", def.ParentID)
	return s.types.Type(def.ID)
}
