// Package memory implements the object store of a CMIS repository in
// memory.
//
// All state is guarded by one read-write mutex. Callers access the store
// through transactions: View runs a function under the read lock and
// Update under the write lock, so every structural change (filing, ACL
// assignment, version state) becomes visible atomically.
package memory

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// FirstObjectID is the id assigned to the root folder.
const FirstObjectID = 100

// Store is the in-memory object registry.
type Store struct {
	mu      sync.RWMutex
	nextID  atomic.Int64
	objects map[string]StoredObject
	root    *Folder

	// acls[0] is the open ACL.
	acls   []cmis.Acl
	aclIDs map[string]int

	superUser string
}

// Option configures a Store.
type Option func(*Store)

// WithSuperUser sets a principal that passes every permission check.
func WithSuperUser(principal string) Option {
	return func(s *Store) {
		s.superUser = principal
	}
}

// WithRootAcl sets the ACL of the root folder. By default the root folder
// is fully open.
func WithRootAcl(acl cmis.Acl) Option {
	return func(s *Store) {
		s.root.AclID = s.aclID(acl)
	}
}

// New creates a store holding only the root folder.
func New(opts ...Option) *Store {
	s := &Store{
		objects: make(map[string]StoredObject),
		acls:    []cmis.Acl{{}},
		aclIDs:  map[string]int{"": 0},
	}
	s.nextID.Store(FirstObjectID)

	root := NewFolder(NewObject("", string(cmis.BaseTypeFolder), cmis.BaseTypeFolder, cmis.PrincipalAnonymous))
	root.root = true
	root.ID = s.newID()
	s.objects[root.ID] = root
	s.root = root

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) newID() string {
	return strconv.FormatInt(s.nextID.Add(1)-1, 10)
}

// RootID returns the id of the root folder.
func (s *Store) RootID() string {
	return s.root.ID
}

// SuperUser returns the configured super user, "" if none.
func (s *Store) SuperUser() string {
	return s.superUser
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Tx{s: s})
}

// Update runs fn in a read-write transaction. Changes made by fn before
// it fails are not rolled back.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{s: s, writable: true})
}

// Tx is a transaction on the store. It must not be used after the
// function it was passed to returns.
type Tx struct {
	s        *Store
	writable bool
}

func (tx *Tx) checkWritable() error {
	if !tx.writable {
		return cmis.Errorf(cmis.KindRuntime, "transaction is read-only")
	}
	return nil
}

// Root returns the root folder.
func (tx *Tx) Root() *Folder {
	return tx.s.root
}

// Get returns the object with the given id.
func (tx *Tx) Get(id string) (StoredObject, error) {
	if id == "" {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "object id is required")
	}
	obj, ok := tx.s.objects[id]
	if !ok {
		return nil, cmis.Errorf(cmis.KindObjectNotFound, "object %s not found", id)
	}
	return obj, nil
}

// GetFolder returns the folder with the given id.
func (tx *Tx) GetFolder(id string) (*Folder, error) {
	obj, err := tx.Get(id)
	if err != nil {
		return nil, err
	}
	f, ok := obj.(*Folder)
	if !ok {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "object %s is not a folder", id)
	}
	return f, nil
}

// Put stores obj. An object without id is assigned a new one; otherwise
// the stored object is replaced. Put does not file the object.
func (tx *Tx) Put(obj StoredObject) (string, error) {
	if err := tx.checkWritable(); err != nil {
		return "", err
	}
	b := obj.Base()
	if b.ID == "" {
		b.ID = tx.s.newID()
	}
	tx.s.objects[b.ID] = obj
	return b.ID, nil
}

// Len returns the number of stored objects.
func (tx *Tx) Len() int {
	return len(tx.s.objects)
}

// Walk calls fn for every stored object in id order until fn returns
// false.
func (tx *Tx) Walk(fn func(obj StoredObject) bool) {
	ids := make([]string, 0, len(tx.s.objects))
	for id := range tx.s.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		if !fn(tx.s.objects[id]) {
			return
		}
	}
}

// Relationships returns the relationships whose source or target is id.
func (tx *Tx) Relationships(id string) []*Relationship {
	var out []*Relationship
	tx.Walk(func(obj StoredObject) bool {
		if rel, ok := obj.(*Relationship); ok && (rel.SourceID == id || rel.TargetID == id) {
			out = append(out, rel)
		}
		return true
	})
	return out
}

// Delete removes the object with the given id.
//
// The root folder and non-empty folders cannot be deleted. Deleting a
// version removes only that version unless allVersions is set or it is
// the last version, in which case the whole series goes. Deleting a
// working copy cancels the check-out. Relationships referencing a deleted
// object are deleted with it.
func (tx *Tx) Delete(id string, allVersions bool) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	obj, err := tx.Get(id)
	if err != nil {
		return err
	}

	var removed []string
	switch o := obj.(type) {
	case *Folder:
		if o.IsRoot() {
			return cmis.Errorf(cmis.KindConstraint, "the root folder cannot be deleted")
		}
		if len(o.children) > 0 {
			return cmis.Errorf(cmis.KindConstraint, "folder %s is not empty", id)
		}
		tx.unfileAll(o)
		removed = append(removed, tx.remove(o.ID))
	case *VersionSeries:
		removed = tx.deleteSeries(o)
	case *Version:
		switch {
		case o.pwc:
			removed = tx.cancelCheckOut(o)
		case allVersions:
			removed = tx.deleteSeries(o.Series)
		default:
			removed = tx.deleteVersion(o)
		}
	case *Policy:
		inUse := false
		tx.Walk(func(other StoredObject) bool {
			inUse = other.Base().HasPolicy(o.ID)
			return !inUse
		})
		if inUse {
			return cmis.Errorf(cmis.KindConstraint, "policy %s is applied to objects", id)
		}
		tx.unfileAll(o)
		removed = append(removed, tx.remove(o.ID))
	case *Document:
		tx.unfileAll(o)
		removed = append(removed, tx.remove(o.ID))
	default:
		removed = append(removed, tx.remove(id))
	}

	for _, gone := range removed {
		for _, rel := range tx.Relationships(gone) {
			tx.remove(rel.ID)
		}
	}
	return nil
}

func (tx *Tx) remove(id string) string {
	delete(tx.s.objects, id)
	return id
}

func (tx *Tx) deleteSeries(series *VersionSeries) []string {
	removed := make([]string, 0, len(series.versions)+2)
	for _, v := range series.versions {
		removed = append(removed, tx.remove(v.ID))
	}
	if series.pwc != nil {
		removed = append(removed, tx.remove(series.pwc.ID))
	}
	series.versions = nil
	series.pwc = nil
	series.checkedOutBy = ""
	tx.unfileAll(series)
	return append(removed, tx.remove(series.ID))
}

func (tx *Tx) deleteVersion(v *Version) []string {
	series := v.Series
	kept := series.versions[:0]
	for _, other := range series.versions {
		if other != v {
			kept = append(kept, other)
		}
	}
	series.versions = kept
	removed := []string{tx.remove(v.ID)}
	if len(series.versions) == 0 {
		removed = append(removed, tx.deleteSeries(series)...)
	}
	return removed
}

// AclID returns the id of acl in the ACL table, adding it if needed. The
// empty ACL is id 0.
func (tx *Tx) AclID(acl cmis.Acl) (int, error) {
	if id, ok := tx.s.aclIDs[acl.Key()]; ok {
		return id, nil
	}
	if err := tx.checkWritable(); err != nil {
		return 0, err
	}
	return tx.s.aclID(acl), nil
}

func (s *Store) aclID(acl cmis.Acl) int {
	key := acl.Key()
	if id, ok := s.aclIDs[key]; ok {
		return id
	}
	id := len(s.acls)
	s.acls = append(s.acls, acl.Clone())
	s.aclIDs[key] = id
	return id
}

// Acl returns a copy of the ACL with the given id.
func (tx *Tx) Acl(id int) (cmis.Acl, error) {
	if id < 0 || id >= len(tx.s.acls) {
		return cmis.Acl{}, cmis.Errorf(cmis.KindObjectNotFound, "acl %d not found", id)
	}
	return tx.s.acls[id].Clone(), nil
}

// AclCount returns the number of distinct ACLs in the table.
func (tx *Tx) AclCount() int {
	return len(tx.s.acls)
}

// aclHolder returns the object whose ACL applies to obj. Versions use
// the ACL of their series.
func aclHolder(obj StoredObject) *Object {
	if v, ok := obj.(*Version); ok {
		return v.Series.Base()
	}
	return obj.Base()
}

// ObjectAclID returns the ACL id in effect for obj.
func (tx *Tx) ObjectAclID(obj StoredObject) int {
	return aclHolder(obj).AclID
}

// SetObjectAclID assigns an ACL id to obj.
func (tx *Tx) SetObjectAclID(obj StoredObject, id int) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if id < 0 || id >= len(tx.s.acls) {
		return cmis.Errorf(cmis.KindInvalidArgument, "acl %d not found", id)
	}
	aclHolder(obj).AclID = id
	return nil
}

// HasAccess reports whether principal holds at least perm on obj. The
// super user and the open ACL pass every check.
func (tx *Tx) HasAccess(principal string, obj StoredObject, perm cmis.Permission) bool {
	if tx.s.superUser != "" && principal == tx.s.superUser {
		return true
	}
	id := tx.ObjectAclID(obj)
	if id == 0 {
		return true
	}
	return tx.s.acls[id].Grants(principal, perm)
}

// HasReadAccess reports whether principal may read obj.
func (tx *Tx) HasReadAccess(principal string, obj StoredObject) bool {
	return tx.HasAccess(principal, obj, cmis.PermissionRead)
}

// HasWriteAccess reports whether principal may change obj.
func (tx *Tx) HasWriteAccess(principal string, obj StoredObject) bool {
	return tx.HasAccess(principal, obj, cmis.PermissionWrite)
}

// HasAllAccess reports whether principal may change the ACL of obj.
func (tx *Tx) HasAllAccess(principal string, obj StoredObject) bool {
	return tx.HasAccess(principal, obj, cmis.PermissionAll)
}

// CheckAccess returns a PermissionDenied error unless principal holds
// perm on obj.
func (tx *Tx) CheckAccess(principal string, obj StoredObject, perm cmis.Permission) error {
	if tx.HasAccess(principal, obj, perm) {
		return nil
	}
	return cmis.Errorf(cmis.KindPermissionDenied, "%s lacks %s on object %s", principal, perm, obj.Base().ID)
}
