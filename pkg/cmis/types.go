package cmis

import (
	"sort"
	"strings"
	"time"
)

// VersioningState is the initial state of a new document.
type VersioningState string

const (
	VersioningStateNone       VersioningState = "none"
	VersioningStateMajor      VersioningState = "major"
	VersioningStateMinor      VersioningState = "minor"
	VersioningStateCheckedOut VersioningState = "checkedout"
)

// UnfileObject is the disposition of non-folder objects in deleteTree.
type UnfileObject string

const (
	UnfileObjectUnfile            UnfileObject = "unfile"
	UnfileObjectDeleteSingleFiled UnfileObject = "deletesinglefiled"
	UnfileObjectDelete            UnfileObject = "delete"
)

// RelationshipDirection selects relationships by the object's role.
type RelationshipDirection string

const (
	RelationshipDirectionSource RelationshipDirection = "source"
	RelationshipDirectionTarget RelationshipDirection = "target"
	RelationshipDirectionEither RelationshipDirection = "either"
)

// ContentStreamUpdates is the repository policy for content updates.
type ContentStreamUpdates string

const (
	ContentStreamUpdatesAnytime ContentStreamUpdates = "anytime"
	ContentStreamUpdatesPWCOnly ContentStreamUpdates = "pwconly"
	ContentStreamUpdatesNone    ContentStreamUpdates = "none"
)

// CapabilityACL tells how far ACLs are supported.
type CapabilityACL string

const (
	CapabilityACLNone     CapabilityACL = "none"
	CapabilityACLDiscover CapabilityACL = "discover"
	CapabilityACLManage   CapabilityACL = "manage"
)

// CapabilityChanges tells what the change log reports.
type CapabilityChanges string

const (
	CapabilityChangesNone          CapabilityChanges = "none"
	CapabilityChangesObjectIDsOnly CapabilityChanges = "objectidsonly"
)

// RepositoryCapabilities lists the optional features of a repository.
type RepositoryCapabilities struct {
	ACL                   CapabilityACL        `json:"capabilityACL"`
	Query                 string               `json:"capabilityQuery"`
	Renditions            string               `json:"capabilityRenditions"`
	Changes               CapabilityChanges    `json:"capabilityChanges"`
	ContentStreamUpdates  ContentStreamUpdates `json:"capabilityContentStreamUpdatability"`
	GetDescendants        bool                 `json:"capabilityGetDescendants"`
	GetFolderTree         bool                 `json:"capabilityGetFolderTree"`
	Multifiling           bool                 `json:"capabilityMultifiling"`
	Unfiling              bool                 `json:"capabilityUnfiling"`
	VersionSpecificFiling bool                 `json:"capabilityVersionSpecificFiling"`
	PWCUpdatable          bool                 `json:"capabilityPWCUpdatable"`
	PWCSearchable         bool                 `json:"capabilityPWCSearchable"`
	AllVersionsSearchable bool                 `json:"capabilityAllVersionsSearchable"`
}

// RepositoryInfo describes a repository.
type RepositoryInfo struct {
	ID                   string                 `json:"repositoryId"`
	Name                 string                 `json:"repositoryName"`
	Description          string                 `json:"repositoryDescription"`
	VendorName           string                 `json:"vendorName"`
	ProductName          string                 `json:"productName"`
	ProductVersion       string                 `json:"productVersion"`
	RootFolderID         string                 `json:"rootFolderId"`
	CMISVersionSupported string                 `json:"cmisVersionSupported"`
	PrincipalAnonymous   string                 `json:"principalIdAnonymous"`
	PrincipalAnyone      string                 `json:"principalIdAnyone"`
	LatestChangeLogToken string                 `json:"latestChangeLogToken,omitempty"`
	Capabilities         RepositoryCapabilities `json:"capabilities"`
}

// Action is an allowable action.
type Action string

const (
	ActionDeleteObject           Action = "canDeleteObject"
	ActionUpdateProperties       Action = "canUpdateProperties"
	ActionGetProperties          Action = "canGetProperties"
	ActionGetObjectRelationships Action = "canGetObjectRelationships"
	ActionGetObjectParents       Action = "canGetObjectParents"
	ActionGetFolderParent        Action = "canGetFolderParent"
	ActionGetFolderTree          Action = "canGetFolderTree"
	ActionGetDescendants         Action = "canGetDescendants"
	ActionMoveObject             Action = "canMoveObject"
	ActionDeleteContentStream    Action = "canDeleteContentStream"
	ActionCheckOut               Action = "canCheckOut"
	ActionCancelCheckOut         Action = "canCancelCheckOut"
	ActionCheckIn                Action = "canCheckIn"
	ActionSetContentStream       Action = "canSetContentStream"
	ActionGetAllVersions         Action = "canGetAllVersions"
	ActionAddObjectToFolder      Action = "canAddObjectToFolder"
	ActionRemoveObjectFromFolder Action = "canRemoveObjectFromFolder"
	ActionGetContentStream       Action = "canGetContentStream"
	ActionApplyPolicy            Action = "canApplyPolicy"
	ActionGetAppliedPolicies     Action = "canGetAppliedPolicies"
	ActionRemovePolicy           Action = "canRemovePolicy"
	ActionGetChildren            Action = "canGetChildren"
	ActionCreateDocument         Action = "canCreateDocument"
	ActionCreateFolder           Action = "canCreateFolder"
	ActionCreateRelationship     Action = "canCreateRelationship"
	ActionDeleteTree             Action = "canDeleteTree"
	ActionGetRenditions          Action = "canGetRenditions"
	ActionGetACL                 Action = "canGetACL"
	ActionApplyACL               Action = "canApplyACL"
)

// AllowableActions is the set of actions the principal may perform on an
// object in its current state.
type AllowableActions struct {
	Actions map[Action]bool `json:"actions"`
}

// Allows reports whether a is allowed.
func (a *AllowableActions) Allows(action Action) bool {
	return a != nil && a.Actions[action]
}

// List returns the allowed actions in sorted order.
func (a *AllowableActions) List() []Action {
	var out []Action
	for action, ok := range a.Actions {
		if ok {
			out = append(out, action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ObjectData is the client view of a stored object.
type ObjectData struct {
	ID               string            `json:"id"`
	BaseTypeID       BaseTypeID        `json:"baseTypeId"`
	TypeID           string            `json:"typeId"`
	Properties       Properties        `json:"properties"`
	AllowableActions *AllowableActions `json:"allowableActions,omitempty"`
	Acl              *Acl              `json:"acl,omitempty"`
	PolicyIDs        []string          `json:"policyIds,omitempty"`
	Relationships    []*ObjectData     `json:"relationships,omitempty"`
}

// Name returns the cmis:name property when it is part of the view.
func (o *ObjectData) Name() string {
	return o.Properties.String(PropName)
}

// ObjectInFolder is a child of a folder.
type ObjectInFolder struct {
	Object      *ObjectData `json:"object"`
	PathSegment string      `json:"pathSegment,omitempty"`
}

// ObjectInFolderList is a page of folder children.
type ObjectInFolderList struct {
	Objects      []*ObjectInFolder `json:"objects"`
	HasMoreItems bool              `json:"hasMoreItems"`
	NumItems     int               `json:"numItems"`
}

// ObjectInFolderContainer is a node of a descendants or folder-tree result.
type ObjectInFolderContainer struct {
	Object   *ObjectInFolder            `json:"object"`
	Children []*ObjectInFolderContainer `json:"children,omitempty"`
}

// ObjectParent is a parent folder of an object.
type ObjectParent struct {
	Object              *ObjectData `json:"object"`
	RelativePathSegment string      `json:"relativePathSegment,omitempty"`
}

// ObjectList is a page of objects.
type ObjectList struct {
	Objects      []*ObjectData `json:"objects"`
	HasMoreItems bool          `json:"hasMoreItems"`
	NumItems     int           `json:"numItems"`
}

// Rendition is an alternative representation of a document's content.
type Rendition struct {
	StreamID string `json:"streamId"`
	MimeType string `json:"mimeType"`
	Kind     string `json:"kind"`
	Length   int64  `json:"length"`
	Title    string `json:"title,omitempty"`
}

// ChangeType is the kind of change recorded in the change log.
type ChangeType string

const (
	ChangeTypeCreated  ChangeType = "created"
	ChangeTypeUpdated  ChangeType = "updated"
	ChangeTypeDeleted  ChangeType = "deleted"
	ChangeTypeSecurity ChangeType = "security"
)

// ChangeEvent is an entry of the change log. Token increases with every
// recorded event.
type ChangeEvent struct {
	ID         string     `json:"id"`
	Token      int64      `json:"changeLogToken"`
	ObjectID   string     `json:"objectId"`
	TypeID     string     `json:"typeId"`
	ChangeType ChangeType `json:"changeType"`
	Time       time.Time  `json:"changeTime"`
}

// ChangeList is a page of change events. LatestToken is the token to pass
// to the next call.
type ChangeList struct {
	Events       []ChangeEvent `json:"events"`
	HasMoreItems bool          `json:"hasMoreItems"`
	LatestToken  int64         `json:"latestChangeLogToken"`
}

// Filter selects the properties returned with an object.
type Filter struct {
	all bool
	ids map[string]struct{}
}

var minimalFilter = []string{PropObjectID, PropObjectTypeID, PropBaseTypeID, PropName}

// ParseFilter parses a property filter: "*" selects all properties, a
// comma-separated list selects those ids, and an empty filter selects a
// minimal set of system properties.
func ParseFilter(s string) Filter {
	s = strings.TrimSpace(s)
	if s == "*" {
		return Filter{all: true}
	}
	f := Filter{ids: make(map[string]struct{})}
	if s == "" {
		for _, id := range minimalFilter {
			f.ids[id] = struct{}{}
		}
		return f
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "*" {
			return Filter{all: true}
		}
		if part != "" {
			f.ids[part] = struct{}{}
		}
	}
	return f
}

// FilterAll selects every property.
func FilterAll() Filter {
	return Filter{all: true}
}

// Includes reports whether id is selected.
func (f Filter) Includes(id string) bool {
	if f.all {
		return true
	}
	_, ok := f.ids[id]
	return ok
}

// Apply returns the subset of props selected by f.
func (f Filter) Apply(props Properties) Properties {
	if f.all {
		return props
	}
	out := make(Properties, len(f.ids))
	for id := range f.ids {
		if p, ok := props[id]; ok {
			out[id] = p
		}
	}
	return out
}
