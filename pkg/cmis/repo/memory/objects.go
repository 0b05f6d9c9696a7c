package memory

import (
	"strconv"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// StoredObject is implemented by every object kept in the store.
type StoredObject interface {
	Base() *Object
}

// Object holds the state shared by all stored objects. Properties holds
// custom properties only; system properties are derived from the object.
type Object struct {
	ID         string
	Name       string
	TypeID     string
	BaseTypeID cmis.BaseTypeID
	CreatedBy  string
	CreatedAt  time.Time
	ModifiedBy string
	ModifiedAt time.Time
	Properties cmis.Properties
	AclID      int
	PolicyIDs  []string
}

// Base returns o.
func (o *Object) Base() *Object { return o }

// ChangeToken returns the modification time in nanoseconds.
func (o *Object) ChangeToken() string {
	return strconv.FormatInt(o.ModifiedAt.UnixNano(), 10)
}

// Touch records a modification by user.
func (o *Object) Touch(user string) {
	now := time.Now().UTC()
	if !now.After(o.ModifiedAt) {
		now = o.ModifiedAt.Add(time.Nanosecond)
	}
	o.ModifiedBy = user
	o.ModifiedAt = now
}

// HasPolicy reports whether policyID is applied to o.
func (o *Object) HasPolicy(policyID string) bool {
	for _, id := range o.PolicyIDs {
		if id == policyID {
			return true
		}
	}
	return false
}

// NewObject returns a base record for a new object created by user.
func NewObject(name, typeID string, base cmis.BaseTypeID, user string) Object {
	now := time.Now().UTC()
	return Object{
		Name:       name,
		TypeID:     typeID,
		BaseTypeID: base,
		CreatedBy:  user,
		CreatedAt:  now,
		ModifiedBy: user,
		ModifiedAt: now,
		Properties: make(cmis.Properties),
	}
}

// Folder is a single-filed container. The root folder has no parent.
type Folder struct {
	Object
	singleFiling

	// AllowedChildTypeIDs restricts the types of children; empty allows all.
	AllowedChildTypeIDs []string

	children []string
	root     bool
}

// NewFolder returns an unsaved folder.
func NewFolder(obj Object) *Folder {
	return &Folder{Object: obj}
}

// IsRoot reports whether f is the root folder.
func (f *Folder) IsRoot() bool { return f.root }

// Len returns the number of children.
func (f *Folder) Len() int { return len(f.children) }

// Document is an unversioned, multi-filed document.
type Document struct {
	Object
	multiFiling
	Content *cmis.ContentStream
}

// NewDocument returns an unsaved document.
func NewDocument(obj Object, content *cmis.ContentStream) *Document {
	return &Document{Object: obj, Content: content}
}

// VersionSeries groups the versions of a versionable document. It is the
// object filed in folders; its versions share its filing and its ACL.
type VersionSeries struct {
	Object
	multiFiling

	versions     []*Version
	pwc          *Version
	checkedOutBy string
}

// NewVersionSeries returns an unsaved version series.
func NewVersionSeries(obj Object) *VersionSeries {
	return &VersionSeries{Object: obj}
}

// CheckedOut reports whether the series has a working copy.
func (s *VersionSeries) CheckedOut() bool { return s.pwc != nil }

// CheckedOutBy returns the owner of the working copy.
func (s *VersionSeries) CheckedOutBy() string { return s.checkedOutBy }

// WorkingCopy returns the private working copy or nil.
func (s *VersionSeries) WorkingCopy() *Version { return s.pwc }

// Version is a document version of a series.
type Version struct {
	Object
	Series  *VersionSeries
	Content *cmis.ContentStream
	Major   bool
	Comment string

	majorNumber int
	minorNumber int
	pwc         bool
}

// IsPWC reports whether v is the private working copy of its series.
func (v *Version) IsPWC() bool { return v.pwc }

// Label returns the version label, "pwc" for a working copy.
func (v *Version) Label() string {
	if v.pwc {
		return "pwc"
	}
	return strconv.Itoa(v.majorNumber) + "." + strconv.Itoa(v.minorNumber)
}

// ParentIDs returns the folders the series is filed in.
func (v *Version) ParentIDs() []string { return v.Series.ParentIDs() }

// Policy is a multi-filed policy object.
type Policy struct {
	Object
	multiFiling
	PolicyText string
}

// NewPolicy returns an unsaved policy.
func NewPolicy(obj Object, text string) *Policy {
	return &Policy{Object: obj, PolicyText: text}
}

// Relationship links a source and a target object. Relationships are not
// fileable.
type Relationship struct {
	Object
	SourceID string
	TargetID string
}

// NewRelationship returns an unsaved relationship.
func NewRelationship(obj Object, sourceID, targetID string) *Relationship {
	return &Relationship{Object: obj, SourceID: sourceID, TargetID: targetID}
}

// ContentOf returns the content of a document or version.
func ContentOf(obj StoredObject) (*cmis.ContentStream, bool) {
	switch o := obj.(type) {
	case *Document:
		return o.Content, true
	case *Version:
		return o.Content, true
	}
	return nil, false
}

// SetContent replaces the content of a document or version.
func SetContent(obj StoredObject, content *cmis.ContentStream) bool {
	switch o := obj.(type) {
	case *Document:
		o.Content = content
	case *Version:
		o.Content = content
	default:
		return false
	}
	return true
}
