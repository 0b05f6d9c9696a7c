package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

// readableFolder loads a folder the principal may read.
func readableFolder(tx *memory.Tx, folderID, user string) (*memory.Folder, error) {
	folder, err := tx.GetFolder(folderID)
	if err != nil {
		return nil, err
	}
	if err := tx.CheckAccess(user, folder, cmis.PermissionRead); err != nil {
		return nil, err
	}
	return folder, nil
}

// visibleChildren returns the readable children of folder with version
// series resolved to their latest version.
func visibleChildren(tx *memory.Tx, folder *memory.Folder, user string, foldersOnly bool) []memory.StoredObject {
	var out []memory.StoredObject
	for _, child := range tx.Children(folder) {
		if _, isFolder := child.(*memory.Folder); foldersOnly && !isFolder {
			continue
		}
		obj, err := resolve(tx, child)
		if err != nil {
			continue
		}
		if !tx.HasReadAccess(user, obj) {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func (s *service) inFolder(tx *memory.Tx, obj memory.StoredObject, user, filter string, includeActions, includePathSegment bool) *cmis.ObjectInFolder {
	child := &cmis.ObjectInFolder{
		Object: s.objectData(tx, obj, user, cmis.GetObjectOptions{Filter: filter, IncludeAllowableActions: includeActions}),
	}
	if includePathSegment {
		child.PathSegment = obj.Base().Name
	}
	return child
}

func (s *service) GetChildren(ctx context.Context, req cmis.GetChildrenRequest) (list *cmis.ObjectInFolderList, err error) {
	defer s.track("getChildren", req.FolderID, time.Now(), &err)
	if err := checkPaging(req.MaxItems, req.SkipCount); err != nil {
		return nil, err
	}
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		folder, err := readableFolder(tx, req.FolderID, user)
		if err != nil {
			return err
		}
		children := visibleChildren(tx, folder, user, req.FoldersOnly)
		selected, more := page(children, req.MaxItems, req.SkipCount)
		list = &cmis.ObjectInFolderList{
			Objects:      make([]*cmis.ObjectInFolder, 0, len(selected)),
			HasMoreItems: more,
			NumItems:     len(children),
		}
		for _, child := range selected {
			list.Objects = append(list.Objects, s.inFolder(tx, child, user, req.Filter, req.IncludeAllowableActions, req.IncludePathSegment))
		}
		return nil
	})
	return list, err
}

func (s *service) GetDescendants(ctx context.Context, req cmis.DescendantsRequest) (tree []*cmis.ObjectInFolderContainer, err error) {
	defer s.track("getDescendants", req.FolderID, time.Now(), &err)
	return s.descendants(ctx, req, false)
}

func (s *service) GetFolderTree(ctx context.Context, req cmis.DescendantsRequest) (tree []*cmis.ObjectInFolderContainer, err error) {
	defer s.track("getFolderTree", req.FolderID, time.Now(), &err)
	return s.descendants(ctx, req, true)
}

func (s *service) descendants(ctx context.Context, req cmis.DescendantsRequest, foldersOnly bool) (tree []*cmis.ObjectInFolderContainer, err error) {
	if req.Depth == 0 || req.Depth < -1 {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "invalid depth %d", req.Depth)
	}
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		folder, err := readableFolder(tx, req.FolderID, user)
		if err != nil {
			return err
		}
		tree = s.containers(tx, folder, user, req, req.Depth, foldersOnly)
		return nil
	})
	return tree, err
}

func (s *service) containers(tx *memory.Tx, folder *memory.Folder, user string, req cmis.DescendantsRequest, depth int, foldersOnly bool) []*cmis.ObjectInFolderContainer {
	children := visibleChildren(tx, folder, user, foldersOnly)
	out := make([]*cmis.ObjectInFolderContainer, 0, len(children))
	for _, child := range children {
		c := &cmis.ObjectInFolderContainer{
			Object: s.inFolder(tx, child, user, req.Filter, req.IncludeAllowableActions, req.IncludePathSegment),
		}
		if sub, ok := child.(*memory.Folder); ok && depth != 1 {
			next := depth - 1
			if depth < 0 {
				next = depth
			}
			c.Children = s.containers(tx, sub, user, req, next, foldersOnly)
		}
		out = append(out, c)
	}
	return out
}

func (s *service) GetFolderParent(ctx context.Context, folderID, filter string) (od *cmis.ObjectData, err error) {
	defer s.track("getFolderParent", folderID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		folder, err := readableFolder(tx, folderID, user)
		if err != nil {
			return err
		}
		if folder.IsRoot() {
			return cmis.Errorf(cmis.KindInvalidArgument, "the root folder has no parent")
		}
		parent, err := readableFolder(tx, folder.ParentID(), user)
		if err != nil {
			return err
		}
		od = s.objectData(tx, parent, user, cmis.GetObjectOptions{Filter: filter})
		return nil
	})
	return od, err
}

func (s *service) GetObjectParents(ctx context.Context, objectID, filter string, includeRelativePathSegment bool) (parents []*cmis.ObjectParent, err error) {
	defer s.track("getObjectParents", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := getReadable(tx, objectID, user)
		if err != nil {
			return err
		}
		if f, ok := obj.(*memory.Folder); ok && f.IsRoot() {
			return cmis.Errorf(cmis.KindInvalidArgument, "the root folder has no parent")
		}
		if _, ok := memory.Fileable(obj); !ok {
			return cmis.Errorf(cmis.KindConstraint, "object %s is not fileable", objectID)
		}
		parents = []*cmis.ObjectParent{}
		for _, folder := range tx.Parents(obj) {
			if !tx.HasReadAccess(user, folder) {
				continue
			}
			p := &cmis.ObjectParent{Object: s.objectData(tx, folder, user, cmis.GetObjectOptions{Filter: filter})}
			if includeRelativePathSegment {
				p.RelativePathSegment = obj.Base().Name
			}
			parents = append(parents, p)
		}
		return nil
	})
	return parents, err
}

func (s *service) GetCheckedOutDocs(ctx context.Context, folderID, filter string, maxItems, skipCount int) (list *cmis.ObjectList, err error) {
	defer s.track("getCheckedOutDocs", folderID, time.Now(), &err)
	if err := checkPaging(maxItems, skipCount); err != nil {
		return nil, err
	}
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		if folderID != "" {
			if _, err := readableFolder(tx, folderID, user); err != nil {
				return err
			}
		}
		var pwcs []*memory.Version
		for _, pwc := range tx.CheckedOut() {
			if folderID != "" && !filedIn(pwc, folderID) {
				continue
			}
			if tx.HasReadAccess(user, pwc) {
				pwcs = append(pwcs, pwc)
			}
		}
		selected, more := page(pwcs, maxItems, skipCount)
		list = &cmis.ObjectList{Objects: make([]*cmis.ObjectData, 0, len(selected)), HasMoreItems: more, NumItems: len(pwcs)}
		for _, pwc := range selected {
			list.Objects = append(list.Objects, s.objectData(tx, pwc, user, cmis.GetObjectOptions{Filter: filter}))
		}
		return nil
	})
	return list, err
}

func filedIn(obj memory.StoredObject, folderID string) bool {
	filed, ok := memory.Fileable(obj)
	if !ok {
		return false
	}
	for _, id := range filed.ParentIDs() {
		if id == folderID {
			return true
		}
	}
	return false
}
