// Package typesys holds the type hierarchy of a repository and validates
// property sets against type definitions.
package typesys

import (
	"sync"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// Manager is a registry of type definitions. Each registered type caches
// its effective property definitions: its own plus deep copies of all
// ancestor definitions flagged as inherited.
type Manager struct {
	mu       sync.RWMutex
	types    map[string]*cmis.TypeDefinition
	children map[string][]string
}

// NewManager creates a manager holding the four base types.
func NewManager() *Manager {
	m := &Manager{
		types:    make(map[string]*cmis.TypeDefinition),
		children: make(map[string][]string),
	}
	for _, base := range baseTypes() {
		base.PropertyDefinitions = make(map[string]*cmis.PropertyDefinition, len(base.OwnPropertyDefinitions))
		for _, def := range base.OwnPropertyDefinitions {
			base.PropertyDefinitions[def.ID] = def.Clone()
		}
		m.types[base.ID] = base
	}
	return m
}

// AddType registers def as a child of its parent type. The definition is
// copied; later changes to def do not affect the registry.
func (m *Manager) AddType(def *cmis.TypeDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addType(def)
}

func (m *Manager) addType(def *cmis.TypeDefinition) error {
	if def == nil || def.ID == "" {
		return cmis.Errorf(cmis.KindInvalidArgument, "type id is required")
	}
	if _, exists := m.types[def.ID]; exists {
		return cmis.Errorf(cmis.KindInvalidArgument, "type %s already exists", def.ID)
	}
	if def.ParentID == "" {
		return cmis.Errorf(cmis.KindInvalidArgument, "type %s has no parent type", def.ID)
	}
	parent, ok := m.types[def.ParentID]
	if !ok {
		return cmis.Errorf(cmis.KindObjectNotFound, "parent type %s of %s not found", def.ParentID, def.ID)
	}

	td := def.Clone()
	if td.BaseID == "" {
		td.BaseID = parent.BaseID
	}
	if td.BaseID != parent.BaseID {
		return cmis.Errorf(cmis.KindConstraint, "type %s has base %s but its parent has base %s", td.ID, td.BaseID, parent.BaseID)
	}
	if td.BaseID == cmis.BaseTypeDocument && td.ContentStreamAllowed == "" {
		td.ContentStreamAllowed = parent.ContentStreamAllowed
	}
	if td.LocalName == "" {
		td.LocalName = td.ID
	}
	if td.QueryName == "" {
		td.QueryName = td.ID
	}
	if td.DisplayName == "" {
		td.DisplayName = td.ID
	}

	effective := make(map[string]*cmis.PropertyDefinition, len(parent.PropertyDefinitions)+len(td.OwnPropertyDefinitions))
	for id, inherited := range parent.PropertyDefinitions {
		c := inherited.Clone()
		c.Inherited = true
		effective[id] = c
	}
	for _, own := range td.OwnPropertyDefinitions {
		if err := normalizeDefinition(own); err != nil {
			return err.WithOp("addType", td.ID)
		}
		if existing, ok := effective[own.ID]; ok {
			if existing.Inherited {
				return cmis.Errorf(cmis.KindConstraint, "type %s redefines inherited property %s", td.ID, own.ID)
			}
			return cmis.Errorf(cmis.KindInvalidArgument, "type %s defines property %s twice", td.ID, own.ID)
		}
		c := own.Clone()
		c.Inherited = false
		effective[own.ID] = c
	}
	td.PropertyDefinitions = effective

	m.types[td.ID] = td
	m.children[parent.ID] = append(m.children[parent.ID], td.ID)
	return nil
}

func normalizeDefinition(def *cmis.PropertyDefinition) *cmis.Error {
	if def == nil || def.ID == "" {
		return cmis.Errorf(cmis.KindInvalidArgument, "property definition id is required")
	}
	switch def.Type {
	case cmis.PropertyTypeString, cmis.PropertyTypeBoolean, cmis.PropertyTypeInteger,
		cmis.PropertyTypeDecimal, cmis.PropertyTypeDateTime, cmis.PropertyTypeID,
		cmis.PropertyTypeHTML, cmis.PropertyTypeURI:
	default:
		return cmis.Errorf(cmis.KindInvalidArgument, "property %s has unknown type %q", def.ID, def.Type)
	}
	if def.Cardinality == "" {
		def.Cardinality = cmis.CardinalitySingle
	}
	if def.Updatability == "" {
		def.Updatability = cmis.UpdatabilityReadWrite
	}
	if def.LocalName == "" {
		def.LocalName = def.ID
	}
	for i, v := range def.DefaultValue {
		nv, err := cmis.NormalizeValue(def.Type, v)
		if err != nil {
			return cmis.Errorf(cmis.KindInvalidArgument, "default of property %s: %v", def.ID, err)
		}
		def.DefaultValue[i] = nv
	}
	return nil
}

// Type returns a copy of the type definition with the given id.
func (m *Manager) Type(id string) (*cmis.TypeDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	td, ok := m.types[id]
	if !ok {
		return nil, cmis.Errorf(cmis.KindObjectNotFound, "type %s not found", id)
	}
	return td.Clone(), nil
}

// Children returns copies of the direct subtypes of id in registration
// order.
func (m *Manager) Children(id string) ([]*cmis.TypeDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.types[id]; !ok {
		return nil, cmis.Errorf(cmis.KindObjectNotFound, "type %s not found", id)
	}
	out := make([]*cmis.TypeDefinition, 0, len(m.children[id]))
	for _, childID := range m.children[id] {
		out = append(out, m.types[childID].Clone())
	}
	return out, nil
}

// BaseTypes returns copies of the four base types.
func (m *Manager) BaseTypes() []*cmis.TypeDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*cmis.TypeDefinition, 0, 4)
	for _, id := range []cmis.BaseTypeID{cmis.BaseTypeDocument, cmis.BaseTypeFolder, cmis.BaseTypeRelationship, cmis.BaseTypePolicy} {
		out = append(out, m.types[string(id)].Clone())
	}
	return out
}

// Descendants returns the subtree below id, depth levels deep. Depth -1
// is unbounded. An empty id starts from the base types, which then form
// the first level.
func (m *Manager) Descendants(id string, depth int) ([]*cmis.TypeDefinitionContainer, error) {
	if depth == 0 || depth < -1 {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "invalid depth %d", depth)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var roots []string
	if id == "" {
		roots = []string{string(cmis.BaseTypeDocument), string(cmis.BaseTypeFolder), string(cmis.BaseTypeRelationship), string(cmis.BaseTypePolicy)}
	} else {
		if _, ok := m.types[id]; !ok {
			return nil, cmis.Errorf(cmis.KindObjectNotFound, "type %s not found", id)
		}
		roots = m.children[id]
	}
	return m.containers(roots, depth), nil
}

func (m *Manager) containers(ids []string, depth int) []*cmis.TypeDefinitionContainer {
	out := make([]*cmis.TypeDefinitionContainer, 0, len(ids))
	for _, id := range ids {
		c := &cmis.TypeDefinitionContainer{Type: m.types[id].Clone()}
		if depth != 1 && len(m.children[id]) > 0 {
			next := depth - 1
			if depth < 0 {
				next = depth
			}
			c.Children = m.containers(m.children[id], next)
		}
		out = append(out, c)
	}
	return out
}

// IsSubtypeOf reports whether id is ancestor or one of its descendants.
func (m *Manager) IsSubtypeOf(id, ancestor string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id != "" {
		if id == ancestor {
			return true
		}
		td, ok := m.types[id]
		if !ok {
			return false
		}
		id = td.ParentID
	}
	return false
}

// Types returns copies of all registered types, base types first and
// then subtypes in registration order per parent.
func (m *Manager) Types() []*cmis.TypeDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*cmis.TypeDefinition
	var walk func(id string)
	walk = func(id string) {
		out = append(out, m.types[id].Clone())
		for _, child := range m.children[id] {
			walk(child)
		}
	}
	for _, id := range []cmis.BaseTypeID{cmis.BaseTypeDocument, cmis.BaseTypeFolder, cmis.BaseTypeRelationship, cmis.BaseTypePolicy} {
		walk(string(id))
	}
	return out
}
