package cmis

import "io"

// Request DTOs

// ContentStreamInput is content supplied by a client. The service reads
// Reader once, bounded by the configured size ceiling.
type ContentStreamInput struct {
	Reader   io.Reader
	FileName string
	MimeType string
}

// CreateDocumentRequest contains parameters for creating a document.
// Properties must contain cmis:objectTypeId and cmis:name. An empty
// FolderID creates an unfiled document.
type CreateDocumentRequest struct {
	Properties      Properties
	FolderID        string
	Content         *ContentStreamInput
	VersioningState VersioningState
	PolicyIDs       []string
	AddAces         Acl
	RemoveAces      Acl
}

// CreateDocumentFromSourceRequest copies a document. Properties override
// the source's custom properties; the content is shared with the source.
type CreateDocumentFromSourceRequest struct {
	SourceID        string
	Properties      Properties
	FolderID        string
	VersioningState VersioningState
	PolicyIDs       []string
	AddAces         Acl
	RemoveAces      Acl
}

// CreateFolderRequest contains parameters for creating a folder
type CreateFolderRequest struct {
	Properties Properties
	FolderID   string
	PolicyIDs  []string
	AddAces    Acl
	RemoveAces Acl
}

// CreatePolicyRequest contains parameters for creating a policy
type CreatePolicyRequest struct {
	Properties Properties
	FolderID   string
	PolicyIDs  []string
	AddAces    Acl
	RemoveAces Acl
}

// CreateRelationshipRequest contains parameters for creating a
// relationship. Properties must contain cmis:sourceId and cmis:targetId.
type CreateRelationshipRequest struct {
	Properties Properties
	PolicyIDs  []string
	AddAces    Acl
	RemoveAces Acl
}

// GetObjectOptions selects what is returned with an object.
type GetObjectOptions struct {
	Filter                  string
	IncludeAllowableActions bool
	IncludeAcl              bool
	IncludePolicyIDs        bool

	// IncludeRelationships is empty to omit relationships.
	IncludeRelationships RelationshipDirection
}

// GetChildrenRequest contains parameters for listing folder children
type GetChildrenRequest struct {
	FolderID                string
	Filter                  string
	IncludeAllowableActions bool
	IncludePathSegment      bool
	FoldersOnly             bool
	MaxItems                int
	SkipCount               int
}

// DescendantsRequest contains parameters for descendant and folder-tree
// traversals. Depth -1 is unbounded; 0 and values below -1 are invalid.
type DescendantsRequest struct {
	FolderID                string
	Depth                   int
	Filter                  string
	IncludeAllowableActions bool
	IncludePathSegment      bool
}

// SetContentStreamRequest contains parameters for setting or appending
// document content.
type SetContentStreamRequest struct {
	ObjectID    string
	Overwrite   bool
	ChangeToken string
	Content     ContentStreamInput
}

// CheckInRequest contains parameters for checking in a working copy
type CheckInRequest struct {
	ObjectID   string
	Major      bool
	Properties Properties
	Content    *ContentStreamInput
	Comment    string
	PolicyIDs  []string
	AddAces    Acl
	RemoveAces Acl
}

// GetRelationshipsRequest contains parameters for relationship queries.
// An empty TypeID selects all relationship types.
type GetRelationshipsRequest struct {
	ObjectID                    string
	TypeID                      string
	IncludeSubRelationshipTypes bool
	Direction                   RelationshipDirection
	Filter                      string
	MaxItems                    int
	SkipCount                   int
}
