package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

// createType resolves the type named by cmis:objectTypeId in props and
// checks that it is creatable and derives from base. It also returns the
// validated cmis:name.
func (s *service) createType(props cmis.Properties, base cmis.BaseTypeID) (*cmis.TypeDefinition, string, error) {
	typeID := props.String(cmis.PropObjectTypeID)
	if typeID == "" {
		return nil, "", cmis.Errorf(cmis.KindInvalidArgument, "property %s is required", cmis.PropObjectTypeID)
	}
	td, err := s.types.Type(typeID)
	if err != nil {
		return nil, "", err
	}
	if td.BaseID != base {
		return nil, "", cmis.Errorf(cmis.KindInvalidArgument, "type %s is not a %s type", typeID, base)
	}
	if !td.Creatable {
		return nil, "", cmis.Errorf(cmis.KindConstraint, "type %s is not creatable", typeID)
	}
	name := props.String(cmis.PropName)
	if err := memory.ValidateName(name); err != nil {
		return nil, "", err
	}
	return td, name, nil
}

// setDescription copies cmis:description from src into the stored
// properties. An empty value removes it.
func setDescription(dst, src cmis.Properties) {
	p, ok := src[cmis.PropDescription]
	if !ok {
		return
	}
	if desc, _ := p.FirstValue().(string); desc != "" {
		dst.Set(cmis.NewStringProperty(cmis.PropDescription, desc))
		return
	}
	delete(dst, cmis.PropDescription)
}

// parentFolder loads the folder a new object of type td is filed in. An
// empty id yields nil for unfiled objects.
func (s *service) parentFolder(tx *memory.Tx, folderID string, td *cmis.TypeDefinition, user string) (*memory.Folder, error) {
	if folderID == "" {
		return nil, nil
	}
	folder, err := tx.GetFolder(folderID)
	if err != nil {
		return nil, err
	}
	if err := tx.CheckAccess(user, folder, cmis.PermissionWrite); err != nil {
		return nil, err
	}
	if err := s.checkAllowedChild(folder, td); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *service) checkAllowedChild(folder *memory.Folder, td *cmis.TypeDefinition) error {
	if len(folder.AllowedChildTypeIDs) == 0 {
		return nil
	}
	for _, allowed := range folder.AllowedChildTypeIDs {
		if s.types.IsSubtypeOf(td.ID, allowed) {
			return nil
		}
	}
	return cmis.Errorf(cmis.KindConstraint, "folder %s does not allow children of type %s", folder.ID, td.ID)
}

// initialAcl derives the ACL of a new object from its parent folder and
// the requested changes.
func initialAcl(tx *memory.Tx, parent *memory.Folder, add, remove cmis.Acl) (int, error) {
	base := cmis.Acl{}
	if parent != nil {
		acl, err := tx.Acl(tx.ObjectAclID(parent))
		if err != nil {
			return 0, err
		}
		base = acl
	}
	return tx.AclID(base.Merge(cmis.NewAcl(add.Aces...)).Remove(remove))
}

// checkPolicies verifies that every id names a policy.
func checkPolicies(tx *memory.Tx, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		obj, err := tx.Get(id)
		if err != nil {
			return nil, err
		}
		if _, ok := obj.(*memory.Policy); !ok {
			return nil, cmis.Errorf(cmis.KindInvalidArgument, "object %s is not a policy", id)
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

// newDocument holds the validated input of a document creation.
type newDocument struct {
	td         *cmis.TypeDefinition
	name       string
	props      cmis.Properties
	folderID   string
	content    *cmis.ContentStream
	state      cmis.VersioningState
	policyIDs  []string
	addAces    cmis.Acl
	removeAces cmis.Acl
}

func (s *service) prepareDocument(td *cmis.TypeDefinition, props cmis.Properties, state cmis.VersioningState, content *cmis.ContentStream) (cmis.Properties, cmis.VersioningState, error) {
	if state == "" {
		state = cmis.VersioningStateNone
		if td.Versionable {
			state = cmis.VersioningStateMajor
		}
	}
	switch state {
	case cmis.VersioningStateNone, cmis.VersioningStateMajor, cmis.VersioningStateMinor, cmis.VersioningStateCheckedOut:
	default:
		return nil, "", cmis.Errorf(cmis.KindInvalidArgument, "unknown versioning state %q", state)
	}
	if !td.Versionable && state != cmis.VersioningStateNone {
		return nil, "", cmis.Errorf(cmis.KindConstraint, "type %s is not versionable and requires versioning state none", td.ID)
	}
	if td.Versionable && state == cmis.VersioningStateNone {
		return nil, "", cmis.Errorf(cmis.KindConstraint, "type %s is versionable and cannot use versioning state none", td.ID)
	}

	switch {
	case td.ContentStreamAllowed == cmis.ContentStreamNotAllowed && content != nil:
		return nil, "", cmis.Errorf(cmis.KindConstraint, "type %s does not allow content", td.ID)
	case td.ContentStreamAllowed == cmis.ContentStreamRequired && content == nil:
		return nil, "", cmis.Errorf(cmis.KindConstraint, "type %s requires content", td.ID)
	}

	validated, err := s.validator.ValidateProperties(td, props, true)
	if err != nil {
		return nil, "", err
	}
	setDescription(validated, props)
	return validated, state, nil
}

// storeDocument creates a document, or a version series with its initial
// version for versionable types, and returns the id clients address it by.
func (s *service) storeDocument(tx *memory.Tx, ch *changes, user string, d newDocument) (string, error) {
	parent, err := s.parentFolder(tx, d.folderID, d.td, user)
	if err != nil {
		return "", err
	}
	aclID, err := initialAcl(tx, parent, d.addAces, d.removeAces)
	if err != nil {
		return "", err
	}
	policyIDs, err := checkPolicies(tx, d.policyIDs)
	if err != nil {
		return "", err
	}

	base := memory.NewObject(d.name, d.td.ID, cmis.BaseTypeDocument, user)
	base.Properties = d.props
	base.AclID = aclID
	base.PolicyIDs = policyIDs

	if !d.td.Versionable {
		doc := memory.NewDocument(base, d.content)
		id, err := tx.Create(doc, parent)
		if err != nil {
			return "", err
		}
		ch.add(cmis.ChangeTypeCreated, doc)
		return id, nil
	}

	seriesBase := memory.NewObject(d.name, d.td.ID, cmis.BaseTypeDocument, user)
	seriesBase.AclID = aclID
	series := memory.NewVersionSeries(seriesBase)
	if _, err := tx.Create(series, parent); err != nil {
		return "", err
	}
	v := memory.NewVersion(series, base, d.content)
	id, err := tx.AddInitialVersion(series, v, d.state == cmis.VersioningStateMajor, d.state == cmis.VersioningStateCheckedOut, user)
	if err != nil {
		return "", err
	}
	ch.add(cmis.ChangeTypeCreated, v)
	return id, nil
}

func (s *service) CreateDocument(ctx context.Context, req cmis.CreateDocumentRequest) (id string, err error) {
	defer s.track("createDocument", req.FolderID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	td, name, err := s.createType(req.Properties, cmis.BaseTypeDocument)
	if err != nil {
		return "", err
	}
	content, err := s.readContent(req.Content)
	if err != nil {
		return "", err
	}
	props, state, err := s.prepareDocument(td, req.Properties, req.VersioningState, content)
	if err != nil {
		return "", err
	}

	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		id, err = s.storeDocument(tx, ch, user, newDocument{
			td:         td,
			name:       name,
			props:      props,
			folderID:   req.FolderID,
			content:    content,
			state:      state,
			policyIDs:  req.PolicyIDs,
			addAces:    req.AddAces,
			removeAces: req.RemoveAces,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("document created", "object_id", id, "type_id", td.ID, "user", user)
	return id, nil
}

func (s *service) CreateDocumentFromSource(ctx context.Context, req cmis.CreateDocumentFromSourceRequest) (id string, err error) {
	defer s.track("createDocumentFromSource", req.SourceID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		source, err := getReadable(tx, req.SourceID, user)
		if err != nil {
			return err
		}
		content, ok := memory.ContentOf(source)
		if !ok {
			return cmis.Errorf(cmis.KindInvalidArgument, "source %s is not a document", req.SourceID)
		}

		src := source.Base()
		props := src.Properties.Clone()
		if props == nil {
			props = make(cmis.Properties)
		}
		for pid, p := range req.Properties {
			props[pid] = p
		}
		props.Set(cmis.NewIDProperty(cmis.PropObjectTypeID, src.TypeID))
		if props.String(cmis.PropName) == "" {
			props.Set(cmis.NewStringProperty(cmis.PropName, src.Name))
		}

		td, name, err := s.createType(props, cmis.BaseTypeDocument)
		if err != nil {
			return err
		}
		validated, state, err := s.prepareDocument(td, props, req.VersioningState, content)
		if err != nil {
			return err
		}
		id, err = s.storeDocument(tx, ch, user, newDocument{
			td:         td,
			name:       name,
			props:      validated,
			folderID:   req.FolderID,
			content:    content,
			state:      state,
			policyIDs:  req.PolicyIDs,
			addAces:    req.AddAces,
			removeAces: req.RemoveAces,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("document copied", "object_id", id, "source_id", req.SourceID, "user", user)
	return id, nil
}

func (s *service) CreateFolder(ctx context.Context, req cmis.CreateFolderRequest) (id string, err error) {
	defer s.track("createFolder", req.FolderID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	if req.FolderID == "" {
		return "", cmis.Errorf(cmis.KindInvalidArgument, "parent folder id is required")
	}
	td, name, err := s.createType(req.Properties, cmis.BaseTypeFolder)
	if err != nil {
		return "", err
	}
	props, err := s.validator.ValidateProperties(td, req.Properties, true)
	if err != nil {
		return "", err
	}
	setDescription(props, req.Properties)
	allowed := req.Properties.Strings(cmis.PropAllowedChildObjectTypeIDs)
	for _, typeID := range allowed {
		if _, err := s.types.Type(typeID); err != nil {
			return "", cmis.Errorf(cmis.KindInvalidArgument, "allowed child type %s not found", typeID)
		}
	}

	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		parent, err := s.parentFolder(tx, req.FolderID, td, user)
		if err != nil {
			return err
		}
		aclID, err := initialAcl(tx, parent, req.AddAces, req.RemoveAces)
		if err != nil {
			return err
		}
		policyIDs, err := checkPolicies(tx, req.PolicyIDs)
		if err != nil {
			return err
		}

		base := memory.NewObject(name, td.ID, cmis.BaseTypeFolder, user)
		base.Properties = props
		base.AclID = aclID
		base.PolicyIDs = policyIDs
		folder := memory.NewFolder(base)
		folder.AllowedChildTypeIDs = allowed
		if id, err = tx.Create(folder, parent); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeCreated, folder)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("folder created", "object_id", id, "parent_id", req.FolderID, "user", user)
	return id, nil
}

func (s *service) CreatePolicy(ctx context.Context, req cmis.CreatePolicyRequest) (id string, err error) {
	defer s.track("createPolicy", req.FolderID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	td, name, err := s.createType(req.Properties, cmis.BaseTypePolicy)
	if err != nil {
		return "", err
	}
	props, err := s.validator.ValidateProperties(td, req.Properties, true)
	if err != nil {
		return "", err
	}
	setDescription(props, req.Properties)

	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		parent, err := s.parentFolder(tx, req.FolderID, td, user)
		if err != nil {
			return err
		}
		aclID, err := initialAcl(tx, parent, req.AddAces, req.RemoveAces)
		if err != nil {
			return err
		}
		policyIDs, err := checkPolicies(tx, req.PolicyIDs)
		if err != nil {
			return err
		}

		base := memory.NewObject(name, td.ID, cmis.BaseTypePolicy, user)
		base.Properties = props
		base.AclID = aclID
		base.PolicyIDs = policyIDs
		policy := memory.NewPolicy(base, req.Properties.String(cmis.PropPolicyText))
		if id, err = tx.Create(policy, parent); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeCreated, policy)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("policy created", "object_id", id, "user", user)
	return id, nil
}

func (s *service) CreateRelationship(ctx context.Context, req cmis.CreateRelationshipRequest) (id string, err error) {
	sourceID := req.Properties.String(cmis.PropSourceID)
	targetID := req.Properties.String(cmis.PropTargetID)
	defer s.track("createRelationship", sourceID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	if sourceID == "" || targetID == "" {
		return "", cmis.Errorf(cmis.KindInvalidArgument, "properties %s and %s are required", cmis.PropSourceID, cmis.PropTargetID)
	}
	td, name, err := s.createType(req.Properties, cmis.BaseTypeRelationship)
	if err != nil {
		return "", err
	}
	props, err := s.validator.ValidateProperties(td, req.Properties, true)
	if err != nil {
		return "", err
	}
	setDescription(props, req.Properties)

	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		source, err := tx.Get(sourceID)
		if err != nil {
			return err
		}
		target, err := tx.Get(targetID)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, source, cmis.PermissionRead); err != nil {
			return err
		}
		if err := tx.CheckAccess(user, target, cmis.PermissionRead); err != nil {
			return err
		}
		if err := s.checkEndpoint(td.AllowedSourceTypes, source, "source"); err != nil {
			return err
		}
		if err := s.checkEndpoint(td.AllowedTargetTypes, target, "target"); err != nil {
			return err
		}
		aclID, err := initialAcl(tx, nil, req.AddAces, req.RemoveAces)
		if err != nil {
			return err
		}
		policyIDs, err := checkPolicies(tx, req.PolicyIDs)
		if err != nil {
			return err
		}

		base := memory.NewObject(name, td.ID, cmis.BaseTypeRelationship, user)
		base.Properties = props
		base.AclID = aclID
		base.PolicyIDs = policyIDs
		rel := memory.NewRelationship(base, sourceID, targetID)
		if id, err = tx.Create(rel, nil); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeCreated, rel)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("relationship created", "object_id", id, "source_id", sourceID, "target_id", targetID, "user", user)
	return id, nil
}

func (s *service) checkEndpoint(allowed []string, obj memory.StoredObject, role string) error {
	if len(allowed) == 0 {
		return nil
	}
	typeID := obj.Base().TypeID
	for _, a := range allowed {
		if s.types.IsSubtypeOf(typeID, a) {
			return nil
		}
	}
	return cmis.Errorf(cmis.KindConstraint, "type %s is not allowed as relationship %s", typeID, role)
}
