package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
	"github.com/tendant/simple-cmis/pkg/cmis/service"
)

func grant(principal string, perm cmis.Permission) cmis.Acl {
	return cmis.NewAcl(cmis.Ace{Principal: principal, Permission: perm})
}

func TestAcl_ApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	doc := mustDocument(t, ctx, svc, rootID(t, svc), "doc", "")

	add := cmis.NewAcl(
		cmis.Ace{Principal: "alice", Permission: cmis.PermissionWrite},
		cmis.Ace{Principal: "bob", Permission: cmis.PermissionRead},
		cmis.Ace{Principal: cmis.PrincipalAnonymous, Permission: cmis.PermissionAll},
	)
	first, err := svc.ApplyAcl(ctx, doc, add, cmis.Acl{}, cmis.AclPropagationObjectOnly)
	require.NoError(t, err)
	second, err := svc.ApplyAcl(ctx, doc, add, cmis.Acl{}, cmis.AclPropagationObjectOnly)
	require.NoError(t, err)
	assert.True(t, first.Acl.Equal(second.Acl))

	got, err := svc.GetAcl(ctx, doc)
	require.NoError(t, err)
	assert.True(t, got.Equal(add), "round trip returns exactly the applied entries")

	third, err := svc.ApplyAcl(ctx, doc, cmis.Acl{}, grant("carol", cmis.PermissionRead), "")
	require.NoError(t, err)
	assert.True(t, third.Acl.Equal(add), "removing an absent principal changes nothing")
}

func TestAcl_Enforcement(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	root := rootID(t, svc)
	doc := mustDocument(t, ctx, svc, root, "doc", "body")
	_, err := svc.SetAcl(ctx, doc, cmis.NewAcl(
		cmis.Ace{Principal: "alice", Permission: cmis.PermissionWrite},
		cmis.Ace{Principal: "bob", Permission: cmis.PermissionRead},
	), cmis.AclPropagationObjectOnly)
	require.NoError(t, err)

	tests := []struct {
		user              string
		read, write, full bool
	}{
		{"alice", true, true, false},
		{"bob", true, false, false},
		{"carol", false, false, false},
		{cmis.PrincipalAnonymous, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			ctx := as(tt.user)

			_, err := svc.GetObject(ctx, doc, cmis.GetObjectOptions{})
			assertAllowed(t, tt.read, err)
			_, err = svc.GetContentStream(ctx, doc, 0, -1)
			assertAllowed(t, tt.read, err)

			_, err = svc.UpdateProperties(ctx, doc, "", cmis.NewProperties(cmis.NewStringProperty(cmis.PropDescription, tt.user)))
			assertAllowed(t, tt.write, err)

			_, err = svc.ApplyAcl(ctx, doc, grant(tt.user, cmis.PermissionAll), cmis.Acl{}, cmis.AclPropagationObjectOnly)
			assertAllowed(t, tt.full, err)
		})
	}
}

func assertAllowed(t *testing.T, allowed bool, err error) {
	t.Helper()
	if allowed {
		assert.NoError(t, err)
		return
	}
	assert.ErrorIs(t, err, cmis.ErrPermissionDenied)
}

func TestAcl_SuperUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, service.WithStore(memory.New(memory.WithSuperUser("admin"))))
	doc := mustDocument(t, ctx, svc, rootID(t, svc), "doc", "")
	_, err := svc.SetAcl(ctx, doc, grant("alice", cmis.PermissionRead), "")
	require.NoError(t, err)

	_, err = svc.GetObject(as("admin"), doc, cmis.GetObjectOptions{})
	assert.NoError(t, err)
	_, err = svc.SetAcl(as("admin"), doc, grant("bob", cmis.PermissionAll), "")
	assert.NoError(t, err)
	require.NoError(t, svc.DeleteObject(as("admin"), doc, true))
}

func TestAcl_Inheritance(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	root := rootID(t, svc)

	folder, err := svc.CreateFolder(ctx, cmis.CreateFolderRequest{
		Properties: nameProps("cmis:folder", "private"),
		FolderID:   root,
		AddAces:    grant("alice", cmis.PermissionAll),
	})
	require.NoError(t, err)

	_, err = svc.CreateDocument(as("bob"), cmis.CreateDocumentRequest{Properties: nameProps("cmis:document", "x"), FolderID: folder})
	assert.ErrorIs(t, err, cmis.ErrPermissionDenied)

	doc, err := svc.CreateDocument(as("alice"), cmis.CreateDocumentRequest{
		Properties: nameProps("cmis:document", "doc"),
		FolderID:   folder,
		AddAces:    grant("bob", cmis.PermissionRead),
	})
	require.NoError(t, err)

	acl, err := svc.GetAcl(as("alice"), doc)
	require.NoError(t, err)
	assert.True(t, acl.Equal(cmis.NewAcl(
		cmis.Ace{Principal: "alice", Permission: cmis.PermissionAll},
		cmis.Ace{Principal: "bob", Permission: cmis.PermissionRead},
	)))
}

func TestAcl_Propagation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	root := rootID(t, svc)
	folder := mustFolder(t, ctx, svc, root, "f")
	sub := mustFolder(t, ctx, svc, folder, "sub")
	open := mustDocument(t, ctx, svc, folder, "open", "")
	locked := mustDocument(t, ctx, svc, sub, "locked", "")
	deep := mustDocument(t, ctx, svc, sub, "deep", "")
	_, err := svc.SetAcl(ctx, locked, grant("carol", cmis.PermissionAll), "")
	require.NoError(t, err)

	t.Run("object only", func(t *testing.T) {
		add := cmis.NewAcl(
			cmis.Ace{Principal: "alice", Permission: cmis.PermissionAll},
			cmis.Ace{Principal: "dave", Permission: cmis.PermissionRead},
		)
		res, err := svc.ApplyAcl(as("alice"), folder, add, cmis.Acl{}, cmis.AclPropagationObjectOnly)
		require.NoError(t, err)
		assert.Empty(t, res.SkippedIDs)

		acl, err := svc.GetAcl(ctx, open)
		require.NoError(t, err)
		assert.Zero(t, acl.Len())
	})

	t.Run("propagate", func(t *testing.T) {
		res, err := svc.ApplyAcl(as("alice"), folder, grant("alice", cmis.PermissionAll), cmis.Acl{}, cmis.AclPropagationPropagate)
		require.NoError(t, err)
		assert.Equal(t, []string{locked}, res.SkippedIDs)

		for _, id := range []string{sub, open, deep} {
			acl, err := svc.GetAcl(as("alice"), id)
			require.NoError(t, err, id)
			perm, ok := acl.Permission("alice")
			assert.True(t, ok, id)
			assert.Equal(t, cmis.PermissionAll, perm, id)
		}

		acl, err := svc.GetAcl(as("carol"), locked)
		require.NoError(t, err)
		assert.True(t, acl.Equal(grant("carol", cmis.PermissionAll)), "skipped objects keep their ACL")
	})

	t.Run("unknown propagation", func(t *testing.T) {
		_, err := svc.ApplyAcl(ctx, folder, cmis.Acl{}, cmis.Acl{}, "sideways")
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	})
}

func TestPolicies(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	defineTypes(t, svc)
	root := rootID(t, svc)
	doc := mustDocument(t, ctx, svc, root, "doc", "")

	policy, err := svc.CreatePolicy(ctx, cmis.CreatePolicyRequest{
		Properties: cmis.NewProperties(
			cmis.NewIDProperty(cmis.PropObjectTypeID, "cmis:policy"),
			cmis.NewStringProperty(cmis.PropName, "retention"),
			cmis.NewStringProperty(cmis.PropPolicyText, "keep for 7 years"),
		),
		FolderID: root,
	})
	require.NoError(t, err)

	props, err := svc.GetProperties(ctx, policy, cmis.PropPolicyText)
	require.NoError(t, err)
	assert.Equal(t, "keep for 7 years", props.String(cmis.PropPolicyText))

	require.NoError(t, svc.ApplyPolicy(ctx, policy, doc))
	require.NoError(t, svc.ApplyPolicy(ctx, policy, doc))

	applied, err := svc.GetAppliedPolicies(ctx, doc, "")
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, policy, applied[0].ID)

	od, err := svc.GetObject(ctx, doc, cmis.GetObjectOptions{IncludePolicyIDs: true})
	require.NoError(t, err)
	assert.Equal(t, []string{policy}, od.PolicyIDs)

	assert.ErrorIs(t, svc.DeleteObject(ctx, policy, true), cmis.ErrConstraint, "applied policies cannot be deleted")
	assert.ErrorIs(t, svc.ApplyPolicy(ctx, doc, doc), cmis.ErrInvalidArgument)

	require.NoError(t, svc.RemovePolicy(ctx, policy, doc))
	assert.ErrorIs(t, svc.RemovePolicy(ctx, policy, doc), cmis.ErrInvalidArgument)
	applied, err = svc.GetAppliedPolicies(ctx, doc, "")
	require.NoError(t, err)
	assert.Empty(t, applied)

	require.NoError(t, svc.DeleteObject(ctx, policy, true))

	t.Run("policies on create", func(t *testing.T) {
		p2, err := svc.CreatePolicy(ctx, cmis.CreatePolicyRequest{Properties: nameProps("cmis:policy", "audit")})
		require.NoError(t, err)
		id, err := svc.CreateDocument(ctx, cmis.CreateDocumentRequest{
			Properties: nameProps("cmis:document", "audited"),
			FolderID:   root,
			PolicyIDs:  []string{p2, p2},
		})
		require.NoError(t, err)
		applied, err := svc.GetAppliedPolicies(ctx, id, "")
		require.NoError(t, err)
		assert.Len(t, applied, 1)

		_, err = svc.CreateDocument(ctx, cmis.CreateDocumentRequest{
			Properties: nameProps("cmis:document", "bad"),
			FolderID:   root,
			PolicyIDs:  []string{doc},
		})
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	})
}

func TestRelationships(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	root := rootID(t, svc)
	a := mustDocument(t, ctx, svc, root, "a", "")
	b := mustDocument(t, ctx, svc, root, "b", "")

	relProps := func(name, source, target string) cmis.Properties {
		return cmis.NewProperties(
			cmis.NewIDProperty(cmis.PropObjectTypeID, "cmis:relationship"),
			cmis.NewStringProperty(cmis.PropName, name),
			cmis.NewIDProperty(cmis.PropSourceID, source),
			cmis.NewIDProperty(cmis.PropTargetID, target),
		)
	}

	rel, err := svc.CreateRelationship(ctx, cmis.CreateRelationshipRequest{Properties: relProps("link", a, b)})
	require.NoError(t, err)

	props, err := svc.GetProperties(ctx, rel, "*")
	require.NoError(t, err)
	assert.Equal(t, a, props.String(cmis.PropSourceID))
	assert.Equal(t, b, props.String(cmis.PropTargetID))

	tests := []struct {
		name      string
		objectID  string
		direction cmis.RelationshipDirection
		want      int
	}{
		{"source of a", a, cmis.RelationshipDirectionSource, 1},
		{"target of a", a, cmis.RelationshipDirectionTarget, 0},
		{"either of a", a, cmis.RelationshipDirectionEither, 1},
		{"target of b", b, cmis.RelationshipDirectionTarget, 1},
		{"default direction", b, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.GetObjectRelationships(ctx, cmis.GetRelationshipsRequest{ObjectID: tt.objectID, Direction: tt.direction})
			require.NoError(t, err)
			assert.Equal(t, tt.want, list.NumItems)
		})
	}

	t.Run("included with the object", func(t *testing.T) {
		od, err := svc.GetObject(ctx, a, cmis.GetObjectOptions{IncludeRelationships: cmis.RelationshipDirectionEither})
		require.NoError(t, err)
		require.Len(t, od.Relationships, 1)
		assert.Equal(t, rel, od.Relationships[0].ID)
	})

	t.Run("invalid requests", func(t *testing.T) {
		_, err := svc.CreateRelationship(ctx, cmis.CreateRelationshipRequest{Properties: relProps("x", a, "")})
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
		_, err = svc.CreateRelationship(ctx, cmis.CreateRelationshipRequest{Properties: relProps("x", a, "999")})
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
		_, err = svc.GetObjectRelationships(ctx, cmis.GetRelationshipsRequest{ObjectID: a, Direction: "up"})
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
		_, err = svc.GetObjectRelationships(ctx, cmis.GetRelationshipsRequest{ObjectID: a, TypeID: "cmis:document"})
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	})

	t.Run("deleting an endpoint removes the relationship", func(t *testing.T) {
		require.NoError(t, svc.DeleteObject(ctx, b, true))
		list, err := svc.GetObjectRelationships(ctx, cmis.GetRelationshipsRequest{ObjectID: a})
		require.NoError(t, err)
		assert.Zero(t, list.NumItems)
		_, err = svc.GetObject(ctx, rel, cmis.GetObjectOptions{})
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
	})
}
