package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

func (s *service) GetObject(ctx context.Context, objectID string, opts cmis.GetObjectOptions) (od *cmis.ObjectData, err error) {
	defer s.track("getObject", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := getReadable(tx, objectID, user)
		if err != nil {
			return err
		}
		od = s.objectData(tx, obj, user, opts)
		return nil
	})
	return od, err
}

func (s *service) GetObjectByPath(ctx context.Context, path string, opts cmis.GetObjectOptions) (od *cmis.ObjectData, err error) {
	defer s.track("getObjectByPath", path, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := tx.GetByPath(path)
		if err != nil {
			return err
		}
		if obj, err = resolve(tx, obj); err != nil {
			return err
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionRead); err != nil {
			return err
		}
		od = s.objectData(tx, obj, user, opts)
		return nil
	})
	return od, err
}

func (s *service) GetProperties(ctx context.Context, objectID, filter string) (cmis.Properties, error) {
	od, err := s.GetObject(ctx, objectID, cmis.GetObjectOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	return od.Properties, nil
}

func (s *service) GetAllowableActions(ctx context.Context, objectID string) (actions *cmis.AllowableActions, err error) {
	defer s.track("getAllowableActions", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := tx.Get(objectID)
		if err != nil {
			return err
		}
		if obj, err = resolve(tx, obj); err != nil {
			return err
		}
		actions = s.allowableActions(tx, obj, user)
		return nil
	})
	return actions, err
}

// Content operations

func (s *service) GetContentStream(ctx context.Context, objectID string, offset, length int64) (cs *cmis.ContentStream, err error) {
	defer s.track("getContentStream", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := getReadable(tx, objectID, user)
		if err != nil {
			return err
		}
		content, ok := memory.ContentOf(obj)
		if !ok || content == nil {
			return cmis.Errorf(cmis.KindConstraint, "object %s has no content stream", objectID)
		}
		cs, err = content.Clip(offset, length)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordContentBytes("out", cs.Length())
	return cs, nil
}

func (s *service) GetRenditions(ctx context.Context, objectID string, maxItems, skipCount int) (renditions []cmis.Rendition, err error) {
	defer s.track("getRenditions", objectID, time.Now(), &err)
	if err := checkPaging(maxItems, skipCount); err != nil {
		return nil, err
	}
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		_, err := getReadable(tx, objectID, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	// Renditions are not generated.
	return []cmis.Rendition{}, nil
}

// contentTarget loads the object whose content changes and runs the checks
// shared by all content updates.
func (s *service) contentTarget(tx *memory.Tx, objectID, changeToken, user string) (memory.StoredObject, *cmis.TypeDefinition, error) {
	obj, err := tx.Get(objectID)
	if err != nil {
		return nil, nil, err
	}
	if obj, err = resolveForUpdate(tx, obj); err != nil {
		return nil, nil, err
	}
	if err := tx.CheckAccess(user, obj, cmis.PermissionWrite); err != nil {
		return nil, nil, err
	}
	if err := checkChangeToken(obj, changeToken); err != nil {
		return nil, nil, err
	}
	if err := s.checkContentUpdatable(obj); err != nil {
		return nil, nil, err
	}
	td, err := s.types.Type(obj.Base().TypeID)
	if err != nil {
		return nil, nil, err
	}
	return obj, td, nil
}

func (s *service) SetContentStream(ctx context.Context, req cmis.SetContentStreamRequest) (id string, err error) {
	defer s.track("setContentStream", req.ObjectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	content, err := s.readContent(&req.Content)
	if err != nil {
		return "", err
	}
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, td, err := s.contentTarget(tx, req.ObjectID, req.ChangeToken, user)
		if err != nil {
			return err
		}
		if td.ContentStreamAllowed == cmis.ContentStreamNotAllowed {
			return cmis.Errorf(cmis.KindConstraint, "type %s does not allow content", td.ID)
		}
		if existing, _ := memory.ContentOf(obj); existing != nil && !req.Overwrite {
			return cmis.Errorf(cmis.KindConstraint, "object %s already has content", obj.Base().ID)
		}
		memory.SetContent(obj, content)
		obj.Base().Touch(user)
		ch.add(cmis.ChangeTypeUpdated, obj)
		id = obj.Base().ID
		return nil
	})
	return id, err
}

func (s *service) AppendContentStream(ctx context.Context, req cmis.SetContentStreamRequest) (id string, err error) {
	defer s.track("appendContentStream", req.ObjectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	if req.Content.Reader == nil {
		return "", cmis.Errorf(cmis.KindInvalidArgument, "content stream reader is nil")
	}
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, td, err := s.contentTarget(tx, req.ObjectID, req.ChangeToken, user)
		if err != nil {
			return err
		}
		if td.ContentStreamAllowed == cmis.ContentStreamNotAllowed {
			return cmis.Errorf(cmis.KindConstraint, "type %s does not allow content", td.ID)
		}
		existing, _ := memory.ContentOf(obj)
		var content *cmis.ContentStream
		if existing == nil {
			content, err = cmis.ReadContentStream(req.Content.Reader, req.Content.FileName, req.Content.MimeType, s.maxContentSize)
		} else {
			content, err = existing.Append(req.Content.Reader, s.maxContentSize)
		}
		if err != nil {
			return err
		}
		s.metrics.RecordContentBytes("in", content.Length()-existing.Length())
		memory.SetContent(obj, content)
		obj.Base().Touch(user)
		ch.add(cmis.ChangeTypeUpdated, obj)
		id = obj.Base().ID
		return nil
	})
	return id, err
}

func (s *service) DeleteContentStream(ctx context.Context, objectID, changeToken string) (id string, err error) {
	defer s.track("deleteContentStream", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, td, err := s.contentTarget(tx, objectID, changeToken, user)
		if err != nil {
			return err
		}
		if td.ContentStreamAllowed == cmis.ContentStreamRequired {
			return cmis.Errorf(cmis.KindConstraint, "type %s requires content", td.ID)
		}
		if existing, _ := memory.ContentOf(obj); existing == nil {
			return cmis.Errorf(cmis.KindConstraint, "object %s has no content stream", obj.Base().ID)
		}
		memory.SetContent(obj, nil)
		obj.Base().Touch(user)
		ch.add(cmis.ChangeTypeUpdated, obj)
		id = obj.Base().ID
		return nil
	})
	return id, err
}

// Property updates

func (s *service) UpdateProperties(ctx context.Context, objectID, changeToken string, props cmis.Properties) (id string, err error) {
	defer s.track("updateProperties", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, err := tx.Get(objectID)
		if err != nil {
			return err
		}
		if obj, err = resolveForUpdate(tx, obj); err != nil {
			return err
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionWrite); err != nil {
			return err
		}
		if err := checkChangeToken(obj, changeToken); err != nil {
			return err
		}
		checkedOut := false
		if v, ok := obj.(*memory.Version); ok {
			if !v.IsPWC() {
				return cmis.Errorf(cmis.KindUpdateConflict, "object %s is not a working copy", v.ID)
			}
			checkedOut = true
		}
		if err := s.applyUpdate(tx, obj, props, checkedOut); err != nil {
			return err
		}
		obj.Base().Touch(user)
		ch.add(cmis.ChangeTypeUpdated, obj)
		id = obj.Base().ID
		return nil
	})
	return id, err
}

// writableSystemProperties lists the system properties clients may change
// after creation.
var writableSystemProperties = map[string]struct{}{
	cmis.PropName:                      {},
	cmis.PropDescription:               {},
	cmis.PropAllowedChildObjectTypeIDs: {},
	cmis.PropPolicyText:                {},
}

// applyUpdate validates props against the type of obj and applies them.
// Names change through a conflict-checked rename.
func (s *service) applyUpdate(tx *memory.Tx, obj memory.StoredObject, props cmis.Properties, checkedOut bool) error {
	b := obj.Base()
	td, err := s.types.Type(b.TypeID)
	if err != nil {
		return err
	}
	for pid := range props {
		if !cmis.IsSystemProperty(pid) {
			continue
		}
		if _, ok := writableSystemProperties[pid]; ok {
			if _, defined := td.PropertyDefinitions[pid]; defined {
				continue
			}
		}
		return cmis.Errorf(cmis.KindConstraint, "property %s cannot be updated", pid)
	}
	validated, err := s.validator.ValidateUpdate(td, props, checkedOut)
	if err != nil {
		return err
	}

	// Nothing is changed until every check has passed.
	var allowedChildren []string
	p, setsAllowed := props[cmis.PropAllowedChildObjectTypeIDs]
	if setsAllowed {
		if _, isFolder := obj.(*memory.Folder); !isFolder {
			return cmis.Errorf(cmis.KindConstraint, "property %s applies to folders only", cmis.PropAllowedChildObjectTypeIDs)
		}
		allowedChildren = make([]string, 0, len(p.Values))
		for _, v := range p.Values {
			typeID, _ := v.(string)
			if _, err := s.types.Type(typeID); err != nil {
				return cmis.Errorf(cmis.KindInvalidArgument, "allowed child type %s not found", typeID)
			}
			allowedChildren = append(allowedChildren, typeID)
		}
	}
	if p, ok := props[cmis.PropName]; ok {
		name, _ := p.FirstValue().(string)
		if name != b.Name {
			if err := tx.Rename(obj, name); err != nil {
				return err
			}
		}
	}

	if setsAllowed {
		obj.(*memory.Folder).AllowedChildTypeIDs = allowedChildren
	}
	if p, ok := props[cmis.PropPolicyText]; ok {
		if policy, isPolicy := obj.(*memory.Policy); isPolicy {
			policy.PolicyText, _ = p.FirstValue().(string)
		}
	}
	if b.Properties == nil {
		b.Properties = make(cmis.Properties)
	}
	setDescription(b.Properties, props)
	for pid, p := range validated {
		if len(p.Values) == 0 {
			delete(b.Properties, pid)
			continue
		}
		b.Properties[pid] = p
	}
	return nil
}

// Filing operations

func (s *service) MoveObject(ctx context.Context, objectID, sourceFolderID, targetFolderID string) (id string, err error) {
	defer s.track("moveObject", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, err := tx.Get(objectID)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionWrite); err != nil {
			return err
		}
		if targetFolderID == "" {
			return cmis.Errorf(cmis.KindInvalidArgument, "target folder id is required")
		}
		target, err := tx.GetFolder(targetFolderID)
		if err != nil {
			return err
		}
		if sourceFolderID == "" {
			return cmis.Errorf(cmis.KindInvalidArgument, "source folder id is required")
		}
		source, err := tx.GetFolder(sourceFolderID)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, target, cmis.PermissionWrite); err != nil {
			return err
		}
		td, err := s.types.Type(obj.Base().TypeID)
		if err != nil {
			return err
		}
		if err := s.checkAllowedChild(target, td); err != nil {
			return err
		}
		if err := tx.Move(obj, source, target); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeUpdated, obj)
		id = obj.Base().ID
		return nil
	})
	return id, err
}

func (s *service) AddObjectToFolder(ctx context.Context, objectID, folderID string, allVersions bool) (err error) {
	defer s.track("addObjectToFolder", objectID, time.Now(), &err)
	if !allVersions {
		return cmis.Errorf(cmis.KindNotSupported, "version specific filing is not supported")
	}
	user := cmis.PrincipalFrom(ctx)
	return s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, err := tx.Get(objectID)
		if err != nil {
			return err
		}
		folder, err := tx.GetFolder(folderID)
		if err != nil {
			return err
		}
		if _, isFolder := obj.(*memory.Folder); isFolder {
			return cmis.Errorf(cmis.KindConstraint, "folders cannot be multi-filed")
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionWrite); err != nil {
			return err
		}
		if err := tx.CheckAccess(user, folder, cmis.PermissionWrite); err != nil {
			return err
		}
		td, err := s.types.Type(obj.Base().TypeID)
		if err != nil {
			return err
		}
		if err := s.checkAllowedChild(folder, td); err != nil {
			return err
		}
		if err := tx.AddParent(obj, folder); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeUpdated, obj)
		return nil
	})
}

func (s *service) RemoveObjectFromFolder(ctx context.Context, objectID, folderID string) (err error) {
	defer s.track("removeObjectFromFolder", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	return s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, err := tx.Get(objectID)
		if err != nil {
			return err
		}
		if _, isFolder := obj.(*memory.Folder); isFolder {
			return cmis.Errorf(cmis.KindConstraint, "folders cannot be unfiled")
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionWrite); err != nil {
			return err
		}
		if folderID == "" {
			// Unfile from every parent.
			for _, parent := range tx.Parents(obj) {
				if err := tx.RemoveParent(obj, parent); err != nil {
					return err
				}
			}
		} else {
			folder, err := tx.GetFolder(folderID)
			if err != nil {
				return err
			}
			if err := tx.RemoveParent(obj, folder); err != nil {
				return err
			}
		}
		ch.add(cmis.ChangeTypeUpdated, obj)
		return nil
	})
}

// Deletion

func (s *service) DeleteObject(ctx context.Context, objectID string, allVersions bool) (err error) {
	defer s.track("deleteObject", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		obj, err := tx.Get(objectID)
		if err != nil {
			return err
		}
		if f, ok := obj.(*memory.Folder); ok && f.IsRoot() {
			return cmis.Errorf(cmis.KindConstraint, "the root folder cannot be deleted")
		}
		if err := tx.CheckAccess(user, obj, cmis.PermissionWrite); err != nil {
			return err
		}
		if err := tx.Delete(objectID, allVersions); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeDeleted, obj)
		return nil
	})
	if err == nil {
		s.logger.Info("object deleted", "object_id", objectID, "user", user)
	}
	return err
}

func (s *service) DeleteTree(ctx context.Context, folderID string, allVersions bool, unfile cmis.UnfileObject, continueOnFailure bool) (failed []string, err error) {
	defer s.track("deleteTree", folderID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	switch unfile {
	case "":
		unfile = cmis.UnfileObjectDelete
	case cmis.UnfileObjectDelete, cmis.UnfileObjectDeleteSingleFiled:
	case cmis.UnfileObjectUnfile:
		return nil, cmis.Errorf(cmis.KindNotSupported, "unfiling objects in deleteTree is not supported")
	default:
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "unknown unfile option %q", unfile)
	}

	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		folder, err := tx.GetFolder(folderID)
		if err != nil {
			return err
		}
		if folder.IsRoot() {
			return cmis.Errorf(cmis.KindConstraint, "the root folder cannot be deleted")
		}
		d := &treeDeleter{tx: tx, ch: ch, user: user, allVersions: allVersions, unfile: unfile, continueOnFailure: continueOnFailure}
		d.deleteFolder(folder)
		failed = d.failed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if failed == nil {
		failed = []string{}
	}
	s.logger.Info("tree deleted", "object_id", folderID, "failed", len(failed), "user", user)
	return failed, nil
}

// treeDeleter deletes a folder subtree bottom-up and collects the ids of
// objects it could not delete.
type treeDeleter struct {
	tx                *memory.Tx
	ch                *changes
	user              string
	allVersions       bool
	unfile            cmis.UnfileObject
	continueOnFailure bool
	failed            []string
	stopped           bool
}

func (d *treeDeleter) fail(id string) {
	d.failed = append(d.failed, id)
	if !d.continueOnFailure {
		d.stopped = true
	}
}

func (d *treeDeleter) deleteFolder(folder *memory.Folder) {
	for _, child := range d.tx.Children(folder) {
		if d.stopped {
			return
		}
		if sub, ok := child.(*memory.Folder); ok {
			d.deleteFolder(sub)
			continue
		}
		d.deleteChild(folder, child)
	}
	if d.stopped {
		return
	}
	if folder.Len() > 0 || !d.tx.HasWriteAccess(d.user, folder) {
		d.fail(folder.ID)
		return
	}
	if err := d.tx.Delete(folder.ID, d.allVersions); err != nil {
		d.fail(folder.ID)
		return
	}
	d.ch.add(cmis.ChangeTypeDeleted, folder)
}

func (d *treeDeleter) deleteChild(folder *memory.Folder, child memory.StoredObject) {
	if !d.tx.HasWriteAccess(d.user, child) {
		d.fail(child.Base().ID)
		return
	}
	if d.unfile == cmis.UnfileObjectDeleteSingleFiled && len(d.tx.Parents(child)) > 1 {
		if err := d.tx.RemoveParent(child, folder); err != nil {
			d.fail(child.Base().ID)
			return
		}
		d.ch.add(cmis.ChangeTypeUpdated, child)
		return
	}
	if series, ok := child.(*memory.VersionSeries); ok && !d.allVersions {
		d.deleteLatest(series)
		return
	}
	if err := d.tx.Delete(child.Base().ID, true); err != nil {
		d.fail(child.Base().ID)
		return
	}
	d.ch.add(cmis.ChangeTypeDeleted, child)
}

// deleteLatest deletes the newest version of series. Older versions keep
// the series filed, so its folder is left in place.
func (d *treeDeleter) deleteLatest(series *memory.VersionSeries) {
	v, err := d.tx.LatestVersion(series, false)
	if err == nil {
		err = d.tx.Delete(v.ID, false)
	}
	if err != nil {
		d.fail(series.ID)
		return
	}
	d.ch.add(cmis.ChangeTypeDeleted, v)
}
