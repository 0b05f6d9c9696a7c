package cmis

import "context"

// Service is the repository contract consumed by bindings. The acting
// principal is taken from the context (see WithPrincipal).
type Service interface {
	RepositoryService
	NavigationService
	ObjectService
	MultiFilingService
	VersioningService
	ACLService
	PolicyService
	RelationshipService
	DiscoveryService
}

// RepositoryService exposes repository and type introspection.
type RepositoryService interface {
	GetRepositoryInfos(ctx context.Context) ([]*RepositoryInfo, error)
	GetRepositoryInfo(ctx context.Context, repositoryID string) (*RepositoryInfo, error)

	// Type operations. An empty typeID on GetTypeChildren and
	// GetTypeDescendants selects the base types.
	GetTypeDefinition(ctx context.Context, typeID string) (*TypeDefinition, error)
	GetTypeChildren(ctx context.Context, typeID string, includePropertyDefinitions bool, maxItems, skipCount int) (*TypeDefinitionList, error)
	GetTypeDescendants(ctx context.Context, typeID string, depth int, includePropertyDefinitions bool) ([]*TypeDefinitionContainer, error)
	CreateType(ctx context.Context, def *TypeDefinition) (*TypeDefinition, error)
}

// NavigationService traverses the folder hierarchy.
type NavigationService interface {
	GetChildren(ctx context.Context, req GetChildrenRequest) (*ObjectInFolderList, error)
	GetDescendants(ctx context.Context, req DescendantsRequest) ([]*ObjectInFolderContainer, error)
	GetFolderTree(ctx context.Context, req DescendantsRequest) ([]*ObjectInFolderContainer, error)
	GetFolderParent(ctx context.Context, folderID, filter string) (*ObjectData, error)
	GetObjectParents(ctx context.Context, objectID, filter string, includeRelativePathSegment bool) ([]*ObjectParent, error)

	// GetCheckedOutDocs lists working copies, below folderID or in the
	// whole repository when folderID is empty.
	GetCheckedOutDocs(ctx context.Context, folderID, filter string, maxItems, skipCount int) (*ObjectList, error)
}

// ObjectService is the create/read/update/delete façade.
type ObjectService interface {
	// Create operations return the id of the new object. For versionable
	// documents this is the id of the initial version.
	CreateDocument(ctx context.Context, req CreateDocumentRequest) (string, error)
	CreateDocumentFromSource(ctx context.Context, req CreateDocumentFromSourceRequest) (string, error)
	CreateFolder(ctx context.Context, req CreateFolderRequest) (string, error)
	CreatePolicy(ctx context.Context, req CreatePolicyRequest) (string, error)
	CreateRelationship(ctx context.Context, req CreateRelationshipRequest) (string, error)

	// Read operations
	GetObject(ctx context.Context, objectID string, opts GetObjectOptions) (*ObjectData, error)
	GetObjectByPath(ctx context.Context, path string, opts GetObjectOptions) (*ObjectData, error)
	GetProperties(ctx context.Context, objectID, filter string) (Properties, error)
	GetAllowableActions(ctx context.Context, objectID string) (*AllowableActions, error)
	GetContentStream(ctx context.Context, objectID string, offset, length int64) (*ContentStream, error)
	GetRenditions(ctx context.Context, objectID string, maxItems, skipCount int) ([]Rendition, error)

	// Content operations return the id of the updated object.
	SetContentStream(ctx context.Context, req SetContentStreamRequest) (string, error)
	AppendContentStream(ctx context.Context, req SetContentStreamRequest) (string, error)
	DeleteContentStream(ctx context.Context, objectID, changeToken string) (string, error)

	UpdateProperties(ctx context.Context, objectID, changeToken string, props Properties) (string, error)
	MoveObject(ctx context.Context, objectID, sourceFolderID, targetFolderID string) (string, error)
	DeleteObject(ctx context.Context, objectID string, allVersions bool) error

	// DeleteTree returns the ids that could not be deleted.
	DeleteTree(ctx context.Context, folderID string, allVersions bool, unfile UnfileObject, continueOnFailure bool) ([]string, error)
}

// MultiFilingService files objects into additional folders.
type MultiFilingService interface {
	AddObjectToFolder(ctx context.Context, objectID, folderID string, allVersions bool) error
	RemoveObjectFromFolder(ctx context.Context, objectID, folderID string) error
}

// VersioningService drives the check-out state machine of version series.
type VersioningService interface {
	// CheckOut returns the id of the working copy and whether the content
	// of the latest version was copied to it.
	CheckOut(ctx context.Context, objectID string) (string, bool, error)
	CancelCheckOut(ctx context.Context, objectID string) error
	CheckIn(ctx context.Context, req CheckInRequest) (string, error)
	GetAllVersions(ctx context.Context, objectID, filter string) ([]*ObjectData, error)
	GetObjectOfLatestVersion(ctx context.Context, objectID string, major bool, opts GetObjectOptions) (*ObjectData, error)
	GetPropertiesOfLatestVersion(ctx context.Context, objectID string, major bool, filter string) (Properties, error)
}

// ACLService reads and changes object ACLs.
type ACLService interface {
	GetAcl(ctx context.Context, objectID string) (*Acl, error)
	ApplyAcl(ctx context.Context, objectID string, add, remove Acl, propagation AclPropagation) (*AclResult, error)

	// SetAcl replaces the ACL instead of merging into it.
	SetAcl(ctx context.Context, objectID string, acl Acl, propagation AclPropagation) (*AclResult, error)
}

// PolicyService applies policies to objects.
type PolicyService interface {
	ApplyPolicy(ctx context.Context, policyID, objectID string) error
	RemovePolicy(ctx context.Context, policyID, objectID string) error
	GetAppliedPolicies(ctx context.Context, objectID, filter string) ([]*ObjectData, error)
}

// RelationshipService queries relationships of an object.
type RelationshipService interface {
	GetObjectRelationships(ctx context.Context, req GetRelationshipsRequest) (*ObjectList, error)
}

// DiscoveryService reports repository changes.
type DiscoveryService interface {
	GetContentChanges(ctx context.Context, changeLogToken int64, maxItems int) (*ChangeList, error)
}
