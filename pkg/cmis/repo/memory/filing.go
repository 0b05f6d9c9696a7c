package memory

import (
	"sort"
	"strings"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// PathSeparator separates names in folder paths.
const PathSeparator = "/"

// Filed is implemented by objects that can be filed in folders: folders
// with at most one parent, and documents, version series and policies
// with any number of parents.
type Filed interface {
	StoredObject
	ParentIDs() []string
	MultiFiled() bool
	addParent(id string)
	removeParent(id string)
}

type singleFiling struct {
	parentID string
}

// ParentID returns the id of the parent folder, "" for the root.
func (f *singleFiling) ParentID() string { return f.parentID }

// ParentIDs returns the parent id as a slice of at most one element.
func (f *singleFiling) ParentIDs() []string {
	if f.parentID == "" {
		return nil
	}
	return []string{f.parentID}
}

// MultiFiled returns false.
func (f *singleFiling) MultiFiled() bool { return false }

func (f *singleFiling) addParent(id string) { f.parentID = id }

func (f *singleFiling) removeParent(id string) {
	if f.parentID == id {
		f.parentID = ""
	}
}

type multiFiling struct {
	parentIDs []string
}

// ParentIDs returns a copy of the parent folder ids.
func (f *multiFiling) ParentIDs() []string {
	return append([]string(nil), f.parentIDs...)
}

// MultiFiled returns true.
func (f *multiFiling) MultiFiled() bool { return true }

func (f *multiFiling) addParent(id string) { f.parentIDs = append(f.parentIDs, id) }

func (f *multiFiling) removeParent(id string) {
	for i, p := range f.parentIDs {
		if p == id {
			f.parentIDs = append(f.parentIDs[:i:i], f.parentIDs[i+1:]...)
			return
		}
	}
}

// Fileable returns the object that carries the filing of obj. Versions
// are filed through their series; relationships are not fileable.
func Fileable(obj StoredObject) (Filed, bool) {
	if v, ok := obj.(*Version); ok {
		return v.Series, true
	}
	f, ok := obj.(Filed)
	return f, ok
}

// ValidateName checks that name can be used as a path segment.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return cmis.Errorf(cmis.KindInvalidArgument, "name is required")
	}
	if strings.Contains(name, PathSeparator) {
		return cmis.Errorf(cmis.KindInvalidArgument, "name %q contains %q", name, PathSeparator)
	}
	return nil
}

// childNamed returns the child of folder with the given name.
func (tx *Tx) childNamed(folder *Folder, name string) (StoredObject, bool) {
	for _, id := range folder.children {
		if child, ok := tx.s.objects[id]; ok && child.Base().Name == name {
			return child, true
		}
	}
	return nil, false
}

// CheckName fails with NameConstraintViolation if folder has a child
// named name other than self.
func (tx *Tx) CheckName(folder *Folder, name string, self StoredObject) error {
	if child, ok := tx.childNamed(folder, name); ok && (self == nil || child.Base() != self.Base()) {
		return cmis.Errorf(cmis.KindNameConstraintViolation, "folder %s already contains an object named %q", folder.ID, name)
	}
	return nil
}

// Create stores a new object and files it in parent, which may be nil for
// unfiled objects. Nothing is stored when the name is taken.
func (tx *Tx) Create(obj StoredObject, parent *Folder) (string, error) {
	if err := tx.checkWritable(); err != nil {
		return "", err
	}
	if parent != nil {
		filed, ok := Fileable(obj)
		if !ok {
			return "", cmis.Errorf(cmis.KindConstraint, "objects of type %s are not fileable", obj.Base().TypeID)
		}
		if err := tx.CheckName(parent, filed.Base().Name, nil); err != nil {
			return "", err
		}
	}
	id, err := tx.Put(obj)
	if err != nil {
		return "", err
	}
	if parent != nil {
		filed, _ := Fileable(obj)
		tx.link(filed, parent)
	}
	return id, nil
}

func (tx *Tx) link(obj Filed, folder *Folder) {
	obj.addParent(folder.ID)
	folder.children = append(folder.children, obj.Base().ID)
}

func (tx *Tx) unlink(obj Filed, folder *Folder) {
	obj.removeParent(folder.ID)
	id := obj.Base().ID
	for i, c := range folder.children {
		if c == id {
			folder.children = append(folder.children[:i:i], folder.children[i+1:]...)
			return
		}
	}
}

func (tx *Tx) unfileAll(obj Filed) {
	for _, pid := range obj.ParentIDs() {
		if folder, ok := tx.s.objects[pid].(*Folder); ok {
			tx.unlink(obj, folder)
		}
	}
}

// Children returns the direct children of folder sorted by name.
func (tx *Tx) Children(folder *Folder) []StoredObject {
	out := make([]StoredObject, 0, len(folder.children))
	for _, id := range folder.children {
		if child, ok := tx.s.objects[id]; ok {
			out = append(out, child)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Base().Name < out[j].Base().Name
	})
	return out
}

// Parents returns the folders obj is filed in.
func (tx *Tx) Parents(obj StoredObject) []*Folder {
	filed, ok := Fileable(obj)
	if !ok {
		return nil
	}
	ids := filed.ParentIDs()
	out := make([]*Folder, 0, len(ids))
	for _, id := range ids {
		if f, ok := tx.s.objects[id].(*Folder); ok {
			out = append(out, f)
		}
	}
	return out
}

// Path returns the path of folder: the names of its ancestors joined by
// the separator. The root's path is the separator.
func (tx *Tx) Path(folder *Folder) string {
	if folder.IsRoot() {
		return PathSeparator
	}
	var names []string
	for f := folder; f != nil && !f.IsRoot(); {
		names = append(names, f.Name)
		parent, ok := tx.s.objects[f.parentID].(*Folder)
		if !ok {
			break
		}
		f = parent
	}
	var sb strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		sb.WriteString(PathSeparator)
		sb.WriteString(names[i])
	}
	return sb.String()
}

// GetByPath resolves an absolute path to an object.
func (tx *Tx) GetByPath(path string) (StoredObject, error) {
	if !strings.HasPrefix(path, PathSeparator) {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "path %q is not absolute", path)
	}
	var cur StoredObject = tx.s.root
	for _, segment := range strings.Split(path, PathSeparator) {
		if segment == "" {
			continue
		}
		folder, ok := cur.(*Folder)
		if !ok {
			return nil, cmis.Errorf(cmis.KindObjectNotFound, "path %s not found", path)
		}
		child, ok := tx.childNamed(folder, segment)
		if !ok {
			return nil, cmis.Errorf(cmis.KindObjectNotFound, "path %s not found", path)
		}
		cur = child
	}
	return cur, nil
}

// AddParent files obj in folder.
func (tx *Tx) AddParent(obj StoredObject, folder *Folder) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	filed, ok := Fileable(obj)
	if !ok {
		return cmis.Errorf(cmis.KindConstraint, "object %s is not fileable", obj.Base().ID)
	}
	for _, pid := range filed.ParentIDs() {
		if pid == folder.ID {
			return cmis.Errorf(cmis.KindInvalidArgument, "object %s is already filed in folder %s", obj.Base().ID, folder.ID)
		}
	}
	if !filed.MultiFiled() && len(filed.ParentIDs()) > 0 {
		return cmis.Errorf(cmis.KindConstraint, "object %s can only have one parent", obj.Base().ID)
	}
	if f, ok := filed.(*Folder); ok && (f.IsRoot() || tx.IsDescendant(f, folder.ID)) {
		return cmis.Errorf(cmis.KindConstraint, "folder %s cannot be filed below itself", f.ID)
	}
	if err := tx.CheckName(folder, filed.Base().Name, nil); err != nil {
		return err
	}
	tx.link(filed, folder)
	return nil
}

// RemoveParent unfiles obj from folder.
func (tx *Tx) RemoveParent(obj StoredObject, folder *Folder) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	filed, ok := Fileable(obj)
	if !ok {
		return cmis.Errorf(cmis.KindConstraint, "object %s is not fileable", obj.Base().ID)
	}
	if !isFiledIn(filed, folder.ID) {
		return cmis.Errorf(cmis.KindInvalidArgument, "object %s is not filed in folder %s", obj.Base().ID, folder.ID)
	}
	tx.unlink(filed, folder)
	return nil
}

func isFiledIn(obj Filed, folderID string) bool {
	for _, pid := range obj.ParentIDs() {
		if pid == folderID {
			return true
		}
	}
	return false
}

// Move refiles obj from source to target as one step. A folder cannot
// be moved into itself or one of its descendants.
func (tx *Tx) Move(obj StoredObject, source, target *Folder) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	filed, ok := Fileable(obj)
	if !ok {
		return cmis.Errorf(cmis.KindConstraint, "object %s is not fileable", obj.Base().ID)
	}
	if target == nil {
		return cmis.Errorf(cmis.KindInvalidArgument, "target folder is required")
	}
	if f, ok := filed.(*Folder); ok {
		if f.IsRoot() {
			return cmis.Errorf(cmis.KindConstraint, "the root folder cannot be moved")
		}
		if tx.IsDescendant(f, target.ID) {
			return cmis.Errorf(cmis.KindConstraint, "folder %s cannot be moved below itself", f.ID)
		}
	}
	if source == nil || !isFiledIn(filed, source.ID) {
		return cmis.Errorf(cmis.KindInvalidArgument, "object %s is not filed in the source folder", obj.Base().ID)
	}
	if source.ID == target.ID {
		return nil
	}
	if isFiledIn(filed, target.ID) {
		return cmis.Errorf(cmis.KindInvalidArgument, "object %s is already filed in folder %s", obj.Base().ID, target.ID)
	}
	if err := tx.CheckName(target, filed.Base().Name, nil); err != nil {
		return err
	}
	tx.unlink(filed, source)
	tx.link(filed, target)
	return nil
}

// Rename changes the name of obj after checking every parent for a
// sibling with the new name.
func (tx *Tx) Rename(obj StoredObject, name string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if f, ok := obj.(*Folder); ok && f.IsRoot() {
		return cmis.Errorf(cmis.KindConstraint, "the root folder cannot be renamed")
	}
	target := obj.Base()
	if filed, ok := Fileable(obj); ok {
		for _, parent := range tx.Parents(obj) {
			if err := tx.CheckName(parent, name, filed); err != nil {
				return err
			}
		}
		// The series carries the filed name. A working copy keeps its
		// name to itself until check-in.
		if v, isVersion := obj.(*Version); isVersion && !v.IsPWC() {
			v.Series.Name = name
		}
	}
	target.Name = name
	return nil
}

// IsDescendant reports whether the folder with id candidateID is folder
// itself or lies below it.
func (tx *Tx) IsDescendant(folder *Folder, candidateID string) bool {
	seen := make(map[string]struct{})
	for id := candidateID; id != ""; {
		if id == folder.ID {
			return true
		}
		if _, loop := seen[id]; loop {
			return false
		}
		seen[id] = struct{}{}
		f, ok := tx.s.objects[id].(*Folder)
		if !ok {
			return false
		}
		id = f.parentID
	}
	return false
}
