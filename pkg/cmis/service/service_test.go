package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/metrics"
	"github.com/tendant/simple-cmis/pkg/cmis/service"
)

func as(user string) context.Context {
	return cmis.WithPrincipal(context.Background(), user)
}

func newService(t *testing.T, opts ...service.Option) cmis.Service {
	t.Helper()
	svc, err := service.New(opts...)
	require.NoError(t, err)
	return svc
}

func rootID(t *testing.T, svc cmis.Service) string {
	t.Helper()
	info, err := svc.GetRepositoryInfo(context.Background(), "")
	require.NoError(t, err)
	return info.RootFolderID
}

func nameProps(typeID, name string) cmis.Properties {
	return cmis.NewProperties(
		cmis.NewIDProperty(cmis.PropObjectTypeID, typeID),
		cmis.NewStringProperty(cmis.PropName, name),
	)
}

func textContent(body string) *cmis.ContentStreamInput {
	return &cmis.ContentStreamInput{Reader: strings.NewReader(body), FileName: "body.txt", MimeType: "text/plain"}
}

func mustFolder(t *testing.T, ctx context.Context, svc cmis.Service, parentID, name string) string {
	t.Helper()
	id, err := svc.CreateFolder(ctx, cmis.CreateFolderRequest{
		Properties: nameProps(string(cmis.BaseTypeFolder), name),
		FolderID:   parentID,
	})
	require.NoError(t, err)
	return id
}

func mustDocument(t *testing.T, ctx context.Context, svc cmis.Service, parentID, name, body string) string {
	t.Helper()
	req := cmis.CreateDocumentRequest{
		Properties: nameProps(string(cmis.BaseTypeDocument), name),
		FolderID:   parentID,
	}
	if body != "" {
		req.Content = textContent(body)
	}
	id, err := svc.CreateDocument(ctx, req)
	require.NoError(t, err)
	return id
}

func mustVersioned(t *testing.T, ctx context.Context, svc cmis.Service, parentID, name, body string) string {
	t.Helper()
	id, err := svc.CreateDocument(ctx, cmis.CreateDocumentRequest{
		Properties:      nameProps("test:versioned", name),
		FolderID:        parentID,
		Content:         textContent(body),
		VersioningState: cmis.VersioningStateMajor,
	})
	require.NoError(t, err)
	return id
}

// defineTypes registers the document types used by the tests.
func defineTypes(t *testing.T, svc cmis.Service) {
	t.Helper()
	maxTitle := 10
	types := []*cmis.TypeDefinition{
		{
			ID: "test:versioned", ParentID: string(cmis.BaseTypeDocument),
			Creatable: true, Fileable: true, Versionable: true, ControllablePolicy: true, ControllableACL: true,
			OwnPropertyDefinitions: []*cmis.PropertyDefinition{
				{ID: "test:note", Type: cmis.PropertyTypeString, Updatability: cmis.UpdatabilityWhenCheckedOut},
			},
		},
		{
			ID: "test:doc", ParentID: string(cmis.BaseTypeDocument),
			Creatable: true, Fileable: true, ControllablePolicy: true, ControllableACL: true,
			OwnPropertyDefinitions: []*cmis.PropertyDefinition{
				{ID: "test:title", Type: cmis.PropertyTypeString, MaxLength: &maxTitle},
				{ID: "test:fixed", Type: cmis.PropertyTypeString, Updatability: cmis.UpdatabilityOnCreate},
				{ID: "test:draft", Type: cmis.PropertyTypeString, Updatability: cmis.UpdatabilityWhenCheckedOut},
				{ID: "test:count", Type: cmis.PropertyTypeInteger, Required: true, DefaultValue: []any{int64(1)}},
			},
		},
	}
	for _, td := range types {
		_, err := svc.CreateType(context.Background(), td)
		require.NoError(t, err)
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		svc := newService(t, service.WithRepositoryID("repo"), service.WithRepositoryName("test", "test repository"))

		infos, err := svc.GetRepositoryInfos(context.Background())
		require.NoError(t, err)
		require.Len(t, infos, 1)

		info := infos[0]
		assert.Equal(t, "repo", info.ID)
		assert.Equal(t, "test", info.Name)
		assert.Equal(t, "100", info.RootFolderID)
		assert.Equal(t, cmis.PrincipalAnonymous, info.PrincipalAnonymous)
		assert.Equal(t, cmis.CapabilityACLManage, info.Capabilities.ACL)
		assert.Equal(t, cmis.CapabilityChangesNone, info.Capabilities.Changes)
		assert.Equal(t, cmis.ContentStreamUpdatesAnytime, info.Capabilities.ContentStreamUpdates)
		assert.True(t, info.Capabilities.Multifiling)
		assert.False(t, info.Capabilities.VersionSpecificFiling)

		_, err = svc.GetRepositoryInfo(context.Background(), "other")
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
	})

	t.Run("unknown content update policy", func(t *testing.T) {
		_, err := service.New(service.WithContentStreamUpdates("sometimes"))
		assert.Error(t, err)
	})
}

func TestErrorsCarryOperation(t *testing.T) {
	svc := newService(t)

	_, err := svc.GetObject(context.Background(), "999", cmis.GetObjectOptions{})
	require.ErrorIs(t, err, cmis.ErrObjectNotFound)

	var cerr *cmis.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "getObject", cerr.Op)
	assert.Equal(t, "999", cerr.ObjectID)
	assert.Equal(t, cmis.KindObjectNotFound, cmis.KindOf(err))
}

func TestTypes(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	defineTypes(t, svc)

	t.Run("base types", func(t *testing.T) {
		list, err := svc.GetTypeChildren(ctx, "", false, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, list.NumItems)
		assert.False(t, list.HasMoreItems)
		for _, td := range list.Types {
			assert.Nil(t, td.PropertyDefinitions)
		}

		list, err = svc.GetTypeChildren(ctx, "", true, 3, 0)
		require.NoError(t, err)
		assert.Len(t, list.Types, 3)
		assert.True(t, list.HasMoreItems)
		assert.NotEmpty(t, list.Types[0].PropertyDefinitions)
	})

	t.Run("children and descendants", func(t *testing.T) {
		list, err := svc.GetTypeChildren(ctx, string(cmis.BaseTypeDocument), false, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, list.NumItems)

		tree, err := svc.GetTypeDescendants(ctx, string(cmis.BaseTypeDocument), -1, true)
		require.NoError(t, err)
		require.Len(t, tree, 2)
		assert.Equal(t, "test:versioned", tree[0].Type.ID)
		assert.True(t, tree[0].Type.PropertyDefinitions[cmis.PropName].Inherited)
		assert.False(t, tree[0].Type.PropertyDefinitions["test:note"].Inherited)

		_, err = svc.GetTypeDescendants(ctx, string(cmis.BaseTypeDocument), 0, false)
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	})

	t.Run("lookup", func(t *testing.T) {
		td, err := svc.GetTypeDefinition(ctx, "test:doc")
		require.NoError(t, err)
		assert.Equal(t, cmis.BaseTypeDocument, td.BaseID)
		assert.Equal(t, cmis.ContentStreamAllowedOpt, td.ContentStreamAllowed)

		_, err = svc.GetTypeDefinition(ctx, "test:missing")
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
		_, err = svc.GetTypeChildren(ctx, "test:missing", false, 0, 0)
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
		_, err = svc.GetTypeChildren(ctx, "", false, -1, 0)
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	})

	t.Run("duplicate type", func(t *testing.T) {
		_, err := svc.CreateType(ctx, &cmis.TypeDefinition{ID: "test:doc", ParentID: string(cmis.BaseTypeDocument)})
		assert.ErrorIs(t, err, cmis.ErrInvalidArgument)
	})
}

type recordingSink struct {
	mu     sync.Mutex
	events []cmis.ChangeEvent
}

func (r *recordingSink) record(e cmis.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) ObjectCreated(ctx context.Context, e cmis.ChangeEvent) error {
	return r.record(e)
}

func (r *recordingSink) ObjectUpdated(ctx context.Context, e cmis.ChangeEvent) error {
	return r.record(e)
}

func (r *recordingSink) ObjectDeleted(ctx context.Context, e cmis.ChangeEvent) error {
	return r.record(e)
}

func (r *recordingSink) SecurityChanged(ctx context.Context, e cmis.ChangeEvent) error {
	return errors.New("sink unavailable")
}

func TestEventSink(t *testing.T) {
	sink := &recordingSink{}
	svc := newService(t, service.WithEventSink(sink))
	ctx := context.Background()
	root := rootID(t, svc)

	id := mustFolder(t, ctx, svc, root, "a")
	_, err := svc.UpdateProperties(ctx, id, "", cmis.NewProperties(cmis.NewStringProperty(cmis.PropName, "b")))
	require.NoError(t, err)
	_, err = svc.ApplyAcl(ctx, id, cmis.NewAcl(cmis.Ace{Principal: "alice", Permission: cmis.PermissionAll}), cmis.Acl{}, cmis.AclPropagationObjectOnly)
	require.NoError(t, err, "sink failures do not fail the operation")
	require.NoError(t, svc.DeleteObject(as("alice"), id, false))

	require.Len(t, sink.events, 3)
	assert.Equal(t, cmis.ChangeTypeCreated, sink.events[0].ChangeType)
	assert.Equal(t, cmis.ChangeTypeUpdated, sink.events[1].ChangeType)
	assert.Equal(t, cmis.ChangeTypeDeleted, sink.events[2].ChangeType)
	for _, e := range sink.events {
		assert.Equal(t, id, e.ObjectID)
		assert.Equal(t, string(cmis.BaseTypeFolder), e.TypeID)
		assert.NotEmpty(t, e.ID)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newService(t, service.WithMetrics(metrics.NewServiceMetrics(reg)))
	ctx := context.Background()

	mustDocument(t, ctx, svc, rootID(t, svc), "doc", "hello")
	_, err := svc.GetObject(ctx, "999", cmis.GetObjectOptions{})
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["cmis_operations_total"])
	assert.True(t, names["cmis_operation_errors_total"])
	assert.True(t, names["cmis_content_bytes_total"])
	assert.True(t, names["cmis_objects"])
}
