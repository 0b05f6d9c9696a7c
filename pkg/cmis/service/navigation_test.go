package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

func childNames(list *cmis.ObjectInFolderList) []string {
	names := make([]string, 0, len(list.Objects))
	for _, o := range list.Objects {
		names = append(names, o.Object.Name())
	}
	return names
}

func TestGetChildren_Pagination(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	folder := mustFolder(t, ctx, svc, rootID(t, svc), "f")
	const total = 7
	for i := total - 1; i >= 0; i-- {
		mustDocument(t, ctx, svc, folder, fmt.Sprintf("d%d", i), "")
	}

	all, err := svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: folder})
	require.NoError(t, err)
	require.Equal(t, total, all.NumItems)
	assert.False(t, all.HasMoreItems)
	assert.Equal(t, []string{"d0", "d1", "d2", "d3", "d4", "d5", "d6"}, childNames(all))

	for _, size := range []int{1, 2, 3, 7, 10} {
		t.Run(fmt.Sprintf("page size %d", size), func(t *testing.T) {
			var names []string
			for skip := 0; skip < total; skip += size {
				list, err := svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: folder, MaxItems: size, SkipCount: skip})
				require.NoError(t, err)
				assert.Equal(t, total, list.NumItems)
				assert.Equal(t, skip+size < total, list.HasMoreItems)
				names = append(names, childNames(list)...)
			}
			assert.Equal(t, childNames(all), names)
		})
	}

	t.Run("skip past the end", func(t *testing.T) {
		list, err := svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: folder, SkipCount: 50})
		require.NoError(t, err)
		assert.Empty(t, list.Objects)
		assert.False(t, list.HasMoreItems)
	})

	t.Run("negative paging", func(t *testing.T) {
		_, err := svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: folder, MaxItems: -1})
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
		_, err = svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: folder, SkipCount: -1})
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	})
}

func TestGetChildren_Options(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	folder := mustFolder(t, ctx, svc, rootID(t, svc), "f")
	mustFolder(t, ctx, svc, folder, "sub")
	doc := mustDocument(t, ctx, svc, folder, "doc", "")

	list, err := svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: folder, FoldersOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub"}, childNames(list))

	list, err = svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: folder, IncludePathSegment: true, IncludeAllowableActions: true})
	require.NoError(t, err)
	require.Len(t, list.Objects, 2)
	assert.Equal(t, "doc", list.Objects[0].PathSegment)
	assert.NotNil(t, list.Objects[0].Object.AllowableActions)

	_, err = svc.GetChildren(ctx, cmis.GetChildrenRequest{FolderID: doc})
	assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
}

func TestGetChildren_HidesUnreadable(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	folder := mustFolder(t, ctx, svc, rootID(t, svc), "f")
	mustDocument(t, ctx, svc, folder, "public", "")
	private := mustDocument(t, ctx, svc, folder, "private", "")
	_, err := svc.SetAcl(ctx, private, cmis.NewAcl(cmis.Ace{Principal: "alice", Permission: cmis.PermissionAll}), cmis.AclPropagationObjectOnly)
	require.NoError(t, err)

	list, err := svc.GetChildren(as("bob"), cmis.GetChildrenRequest{FolderID: folder})
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, childNames(list))

	list, err = svc.GetChildren(as("alice"), cmis.GetChildrenRequest{FolderID: folder})
	require.NoError(t, err)
	assert.Equal(t, []string{"private", "public"}, childNames(list))
}

func TestDescendants(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	root := rootID(t, svc)
	a := mustFolder(t, ctx, svc, root, "a")
	b := mustFolder(t, ctx, svc, a, "b")
	mustFolder(t, ctx, svc, b, "c")
	mustDocument(t, ctx, svc, a, "doc", "")
	mustDocument(t, ctx, svc, b, "inner", "")

	t.Run("one level", func(t *testing.T) {
		tree, err := svc.GetDescendants(ctx, cmis.DescendantsRequest{FolderID: a, Depth: 1})
		require.NoError(t, err)
		require.Len(t, tree, 2)
		for _, node := range tree {
			assert.Empty(t, node.Children)
		}
	})

	t.Run("unbounded", func(t *testing.T) {
		tree, err := svc.GetDescendants(ctx, cmis.DescendantsRequest{FolderID: a, Depth: -1, IncludePathSegment: true})
		require.NoError(t, err)
		require.Len(t, tree, 2)
		assert.Equal(t, "b", tree[0].Object.PathSegment)
		require.Len(t, tree[0].Children, 2)
		assert.Equal(t, "c", tree[0].Children[0].Object.Object.Name())
		assert.Equal(t, "inner", tree[0].Children[1].Object.Object.Name())
		assert.Equal(t, "doc", tree[1].Object.Object.Name())
	})

	t.Run("folder tree", func(t *testing.T) {
		tree, err := svc.GetFolderTree(ctx, cmis.DescendantsRequest{FolderID: a, Depth: -1})
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "b", tree[0].Object.Object.Name())
		require.Len(t, tree[0].Children, 1)
		assert.Equal(t, "c", tree[0].Children[0].Object.Object.Name())
	})

	t.Run("invalid depth", func(t *testing.T) {
		for _, depth := range []int{0, -2} {
			_, err := svc.GetDescendants(ctx, cmis.DescendantsRequest{FolderID: a, Depth: depth})
			assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
			_, err = svc.GetFolderTree(ctx, cmis.DescendantsRequest{FolderID: a, Depth: depth})
			assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
		}
	})
}

func TestParents(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	defineTypes(t, svc)
	root := rootID(t, svc)
	a := mustFolder(t, ctx, svc, root, "a")
	b := mustFolder(t, ctx, svc, a, "b")

	parent, err := svc.GetFolderParent(ctx, b, "")
	require.NoError(t, err)
	assert.Equal(t, a, parent.ID)

	_, err = svc.GetFolderParent(ctx, root, "")
	assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	_, err = svc.GetObjectParents(ctx, root, "", false)
	assert.ErrorIs(t, err, cmis.ErrInvalidArgument)

	v := mustVersioned(t, ctx, svc, b, "versioned", "x")
	parents, err := svc.GetObjectParents(ctx, v, "", true)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, b, parents[0].Object.ID)
	assert.Equal(t, "versioned", parents[0].RelativePathSegment)
}

func TestGetCheckedOutDocs(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	defineTypes(t, svc)
	root := rootID(t, svc)
	a := mustFolder(t, ctx, svc, root, "a")
	b := mustFolder(t, ctx, svc, root, "b")

	v1 := mustVersioned(t, ctx, svc, a, "one", "1")
	v2 := mustVersioned(t, ctx, svc, b, "two", "2")
	pwc1, _, err := svc.CheckOut(ctx, v1)
	require.NoError(t, err)
	pwc2, _, err := svc.CheckOut(ctx, v2)
	require.NoError(t, err)

	list, err := svc.GetCheckedOutDocs(ctx, "", "", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, list.NumItems)
	assert.Equal(t, pwc1, list.Objects[0].ID)
	assert.Equal(t, pwc2, list.Objects[1].ID)

	list, err = svc.GetCheckedOutDocs(ctx, b, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, list.Objects, 1)
	assert.Equal(t, pwc2, list.Objects[0].ID)

	list, err = svc.GetCheckedOutDocs(ctx, "", "", 1, 0)
	require.NoError(t, err)
	assert.Len(t, list.Objects, 1)
	assert.True(t, list.HasMoreItems)
}
