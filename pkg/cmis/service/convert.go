package service

import (
	"strconv"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

// resolve maps a version series to its latest version. Other objects are
// returned unchanged.
func resolve(tx *memory.Tx, obj memory.StoredObject) (memory.StoredObject, error) {
	if series, ok := obj.(*memory.VersionSeries); ok {
		return tx.LatestVersion(series, false)
	}
	return obj, nil
}

// resolveForUpdate maps a version series to its working copy when it is
// checked out and to its latest version otherwise.
func resolveForUpdate(tx *memory.Tx, obj memory.StoredObject) (memory.StoredObject, error) {
	if series, ok := obj.(*memory.VersionSeries); ok {
		if pwc := series.WorkingCopy(); pwc != nil {
			return pwc, nil
		}
		return tx.LatestVersion(series, false)
	}
	return obj, nil
}

// getReadable loads an object for reading: version series resolve to
// their latest version and the principal needs read access.
func getReadable(tx *memory.Tx, id, user string) (memory.StoredObject, error) {
	obj, err := tx.Get(id)
	if err != nil {
		return nil, err
	}
	if obj, err = resolve(tx, obj); err != nil {
		return nil, err
	}
	if err := tx.CheckAccess(user, obj, cmis.PermissionRead); err != nil {
		return nil, err
	}
	return obj, nil
}

// properties returns the custom properties of obj together with the
// system properties derived from its state.
func (s *service) properties(tx *memory.Tx, obj memory.StoredObject) cmis.Properties {
	b := obj.Base()
	props := b.Properties.Clone()
	if props == nil {
		props = make(cmis.Properties)
	}
	props.Set(cmis.NewIDProperty(cmis.PropObjectID, b.ID))
	props.Set(cmis.NewStringProperty(cmis.PropName, b.Name))
	props.Set(cmis.NewIDProperty(cmis.PropObjectTypeID, b.TypeID))
	props.Set(cmis.NewIDProperty(cmis.PropBaseTypeID, string(b.BaseTypeID)))
	props.Set(cmis.NewStringProperty(cmis.PropCreatedBy, b.CreatedBy))
	props.Set(cmis.NewDateTimeProperty(cmis.PropCreationDate, b.CreatedAt))
	props.Set(cmis.NewStringProperty(cmis.PropLastModifiedBy, b.ModifiedBy))
	props.Set(cmis.NewDateTimeProperty(cmis.PropLastModificationDate, b.ModifiedAt))
	props.Set(cmis.NewStringProperty(cmis.PropChangeToken, b.ChangeToken()))

	switch o := obj.(type) {
	case *memory.Folder:
		if !o.IsRoot() {
			props.Set(cmis.NewIDProperty(cmis.PropParentID, o.ParentID()))
		}
		props.Set(cmis.NewStringProperty(cmis.PropPath, tx.Path(o)))
		if len(o.AllowedChildTypeIDs) > 0 {
			props.Set(cmis.NewIDProperty(cmis.PropAllowedChildObjectTypeIDs, o.AllowedChildTypeIDs...))
		}
	case *memory.Document:
		props.Set(cmis.NewBooleanProperty(cmis.PropIsImmutable, false))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsLatestVersion, true))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsMajorVersion, true))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsLatestMajorVersion, true))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsPrivateWorkingCopy, false))
		props.Set(cmis.NewIDProperty(cmis.PropVersionSeriesID, o.ID))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsVersionSeriesCheckedOut, false))
		contentProperties(props, o.Content)
	case *memory.Version:
		series := o.Series
		props.Set(cmis.NewBooleanProperty(cmis.PropIsImmutable, false))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsLatestVersion, tx.IsLatest(o)))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsMajorVersion, o.Major && !o.IsPWC()))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsLatestMajorVersion, tx.IsLatestMajor(o)))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsPrivateWorkingCopy, o.IsPWC()))
		props.Set(cmis.NewStringProperty(cmis.PropVersionLabel, o.Label()))
		props.Set(cmis.NewIDProperty(cmis.PropVersionSeriesID, series.ID))
		props.Set(cmis.NewBooleanProperty(cmis.PropIsVersionSeriesCheckedOut, series.CheckedOut()))
		if pwc := series.WorkingCopy(); pwc != nil {
			props.Set(cmis.NewStringProperty(cmis.PropVersionSeriesCheckedOutBy, series.CheckedOutBy()))
			props.Set(cmis.NewIDProperty(cmis.PropVersionSeriesCheckedOutID, pwc.ID))
		}
		if o.Comment != "" {
			props.Set(cmis.NewStringProperty(cmis.PropCheckinComment, o.Comment))
		}
		contentProperties(props, o.Content)
	case *memory.Relationship:
		props.Set(cmis.NewIDProperty(cmis.PropSourceID, o.SourceID))
		props.Set(cmis.NewIDProperty(cmis.PropTargetID, o.TargetID))
	case *memory.Policy:
		props.Set(cmis.NewStringProperty(cmis.PropPolicyText, o.PolicyText))
	}
	return props
}

func contentProperties(props cmis.Properties, c *cmis.ContentStream) {
	if c == nil {
		return
	}
	props.Set(cmis.NewIntegerProperty(cmis.PropContentStreamLength, c.Length()))
	props.Set(cmis.NewStringProperty(cmis.PropContentStreamMimeType, c.MimeType))
	props.Set(cmis.NewStringProperty(cmis.PropContentStreamFileName, c.FileName))
}

// objectData builds the client view of obj for user.
func (s *service) objectData(tx *memory.Tx, obj memory.StoredObject, user string, opts cmis.GetObjectOptions) *cmis.ObjectData {
	b := obj.Base()
	od := &cmis.ObjectData{
		ID:         b.ID,
		BaseTypeID: b.BaseTypeID,
		TypeID:     b.TypeID,
		Properties: cmis.ParseFilter(opts.Filter).Apply(s.properties(tx, obj)),
	}
	if opts.IncludeAllowableActions {
		od.AllowableActions = s.allowableActions(tx, obj, user)
	}
	if opts.IncludeAcl {
		if acl, err := tx.Acl(tx.ObjectAclID(obj)); err == nil {
			od.Acl = &acl
		}
	}
	if opts.IncludePolicyIDs && len(b.PolicyIDs) > 0 {
		od.PolicyIDs = append([]string(nil), b.PolicyIDs...)
	}
	if opts.IncludeRelationships != "" {
		for _, rel := range tx.Relationships(b.ID) {
			if !matchesDirection(rel, b.ID, opts.IncludeRelationships) || !tx.HasReadAccess(user, rel) {
				continue
			}
			od.Relationships = append(od.Relationships, s.objectData(tx, rel, user, cmis.GetObjectOptions{}))
		}
	}
	return od
}

func matchesDirection(rel *memory.Relationship, id string, dir cmis.RelationshipDirection) bool {
	switch dir {
	case cmis.RelationshipDirectionSource:
		return rel.SourceID == id
	case cmis.RelationshipDirectionTarget:
		return rel.TargetID == id
	default:
		return rel.SourceID == id || rel.TargetID == id
	}
}

// allowableActions computes what user may do with obj in its current
// state.
func (s *service) allowableActions(tx *memory.Tx, obj memory.StoredObject, user string) *cmis.AllowableActions {
	read := tx.HasReadAccess(user, obj)
	write := tx.HasWriteAccess(user, obj)
	all := tx.HasAllAccess(user, obj)

	a := map[cmis.Action]bool{
		cmis.ActionGetProperties:          read,
		cmis.ActionGetObjectRelationships: read,
		cmis.ActionGetAppliedPolicies:     read,
		cmis.ActionGetACL:                 read,
		cmis.ActionApplyPolicy:            write,
		cmis.ActionRemovePolicy:           write,
		cmis.ActionApplyACL:               all,
		cmis.ActionUpdateProperties:       write,
		cmis.ActionDeleteObject:           write,
	}

	switch o := obj.(type) {
	case *memory.Folder:
		root := o.IsRoot()
		a[cmis.ActionGetChildren] = read
		a[cmis.ActionGetDescendants] = read
		a[cmis.ActionGetFolderTree] = read
		a[cmis.ActionGetFolderParent] = read && !root
		a[cmis.ActionGetObjectParents] = read && !root
		a[cmis.ActionCreateDocument] = write
		a[cmis.ActionCreateFolder] = write
		a[cmis.ActionCreateRelationship] = write
		a[cmis.ActionMoveObject] = write && !root
		a[cmis.ActionDeleteTree] = write && !root
		a[cmis.ActionDeleteObject] = write && !root && o.Len() == 0
		a[cmis.ActionUpdateProperties] = write && !root
	case *memory.Document, *memory.Version:
		content, _ := memory.ContentOf(obj)
		updatable := s.checkContentUpdatable(obj) == nil
		a[cmis.ActionGetObjectParents] = read
		a[cmis.ActionGetContentStream] = read && content != nil
		a[cmis.ActionGetRenditions] = read
		a[cmis.ActionSetContentStream] = write && updatable
		a[cmis.ActionDeleteContentStream] = write && updatable && content != nil
		a[cmis.ActionMoveObject] = write
		a[cmis.ActionAddObjectToFolder] = write
		a[cmis.ActionRemoveObjectFromFolder] = write
		a[cmis.ActionCreateRelationship] = write
		if v, ok := o.(*memory.Version); ok {
			owner := v.Series.CheckedOutBy() == user || user == s.store.SuperUser()
			a[cmis.ActionGetAllVersions] = read
			a[cmis.ActionCheckOut] = write && !v.Series.CheckedOut()
			a[cmis.ActionCancelCheckOut] = write && v.IsPWC() && owner
			a[cmis.ActionCheckIn] = write && v.IsPWC() && owner
			a[cmis.ActionUpdateProperties] = write && v.IsPWC()
		}
	case *memory.Policy:
		a[cmis.ActionGetObjectParents] = read
		a[cmis.ActionMoveObject] = write
		a[cmis.ActionAddObjectToFolder] = write
		a[cmis.ActionRemoveObjectFromFolder] = write
	}

	out := &cmis.AllowableActions{Actions: make(map[cmis.Action]bool, len(a))}
	for action, ok := range a {
		if ok {
			out.Actions[action] = true
		}
	}
	return out
}

// checkChangeToken rejects a token older than the object's current one.
// An empty token skips the check.
func checkChangeToken(obj memory.StoredObject, token string) error {
	if token == "" {
		return nil
	}
	given, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return cmis.Errorf(cmis.KindInvalidArgument, "malformed change token %q", token)
	}
	if given < obj.Base().ModifiedAt.UnixNano() {
		return cmis.Errorf(cmis.KindUpdateConflict, "object %s has changed since token %s", obj.Base().ID, token)
	}
	return nil
}

// checkContentUpdatable applies the repository policy for content
// updates. Versions can only change through their working copy.
func (s *service) checkContentUpdatable(obj memory.StoredObject) error {
	if s.contentUpdates == cmis.ContentStreamUpdatesNone {
		return cmis.Errorf(cmis.KindNotSupported, "content streams cannot be updated")
	}
	switch o := obj.(type) {
	case *memory.Version:
		if !o.IsPWC() {
			return cmis.Errorf(cmis.KindUpdateConflict, "object %s is not a working copy", o.ID)
		}
	case *memory.Document:
		if s.contentUpdates == cmis.ContentStreamUpdatesPWCOnly {
			return cmis.Errorf(cmis.KindNotSupported, "content can only be updated on a working copy")
		}
	default:
		return cmis.Errorf(cmis.KindConstraint, "object %s has no content stream", obj.Base().ID)
	}
	return nil
}
