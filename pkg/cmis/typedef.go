package cmis

import "sort"

// BaseTypeID identifies one of the root types of the type hierarchy.
type BaseTypeID string

const (
	BaseTypeDocument     BaseTypeID = "cmis:document"
	BaseTypeFolder       BaseTypeID = "cmis:folder"
	BaseTypeRelationship BaseTypeID = "cmis:relationship"
	BaseTypePolicy       BaseTypeID = "cmis:policy"
)

// IsBaseType reports whether id names one of the root types.
func IsBaseType(id string) bool {
	switch BaseTypeID(id) {
	case BaseTypeDocument, BaseTypeFolder, BaseTypeRelationship, BaseTypePolicy:
		return true
	}
	return false
}

// ContentStreamAllowed tells whether documents of a type carry content.
type ContentStreamAllowed string

const (
	ContentStreamNotAllowed ContentStreamAllowed = "notallowed"
	ContentStreamAllowedOpt ContentStreamAllowed = "allowed"
	ContentStreamRequired   ContentStreamAllowed = "required"
)

// Choice is an allowed value (or ordered tuple of values for multi-valued
// properties) of a property definition. Choices may nest.
type Choice struct {
	DisplayName string   `json:"displayName" yaml:"displayName"`
	Values      []any    `json:"values" yaml:"values"`
	Choices     []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
}

func (c Choice) clone() Choice {
	out := Choice{DisplayName: c.DisplayName, Values: append([]any(nil), c.Values...)}
	if len(c.Choices) > 0 {
		out.Choices = make([]Choice, len(c.Choices))
		for i, sub := range c.Choices {
			out.Choices[i] = sub.clone()
		}
	}
	return out
}

// PropertyDefinition describes a property of a type.
type PropertyDefinition struct {
	ID           string       `json:"id" yaml:"id"`
	LocalName    string       `json:"localName,omitempty" yaml:"localName,omitempty"`
	DisplayName  string       `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Type         PropertyType `json:"propertyType" yaml:"type"`
	Cardinality  Cardinality  `json:"cardinality" yaml:"cardinality"`
	Updatability Updatability `json:"updatability" yaml:"updatability"`
	Inherited    bool         `json:"inherited" yaml:"-"`
	Required     bool         `json:"required" yaml:"required"`
	Queryable    bool         `json:"queryable" yaml:"queryable"`
	Orderable    bool         `json:"orderable" yaml:"orderable"`
	OpenChoice   bool         `json:"openChoice" yaml:"openChoice"`
	Choices      []Choice     `json:"choices,omitempty" yaml:"choices,omitempty"`
	DefaultValue []any        `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	MinInteger   *int64       `json:"minValue,omitempty" yaml:"minInteger,omitempty"`
	MaxInteger   *int64       `json:"maxValue,omitempty" yaml:"maxInteger,omitempty"`
	MinDecimal   *float64     `json:"minDecimal,omitempty" yaml:"minDecimal,omitempty"`
	MaxDecimal   *float64     `json:"maxDecimal,omitempty" yaml:"maxDecimal,omitempty"`
	MaxLength    *int         `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// Clone returns a deep copy of d. Inherited definitions are always cloned
// so that a subtype never aliases its parent's definitions.
func (d *PropertyDefinition) Clone() *PropertyDefinition {
	if d == nil {
		return nil
	}
	c := *d
	if d.Choices != nil {
		c.Choices = make([]Choice, len(d.Choices))
		for i, ch := range d.Choices {
			c.Choices[i] = ch.clone()
		}
	}
	if d.DefaultValue != nil {
		c.DefaultValue = append([]any(nil), d.DefaultValue...)
	}
	if d.MinInteger != nil {
		v := *d.MinInteger
		c.MinInteger = &v
	}
	if d.MaxInteger != nil {
		v := *d.MaxInteger
		c.MaxInteger = &v
	}
	if d.MinDecimal != nil {
		v := *d.MinDecimal
		c.MinDecimal = &v
	}
	if d.MaxDecimal != nil {
		v := *d.MaxDecimal
		c.MaxDecimal = &v
	}
	if d.MaxLength != nil {
		v := *d.MaxLength
		c.MaxLength = &v
	}
	return &c
}

// TypeDefinition describes an object type.
type TypeDefinition struct {
	ID                       string                         `json:"id" yaml:"id"`
	LocalName                string                         `json:"localName,omitempty" yaml:"localName,omitempty"`
	LocalNamespace           string                         `json:"localNamespace,omitempty" yaml:"localNamespace,omitempty"`
	QueryName                string                         `json:"queryName,omitempty" yaml:"queryName,omitempty"`
	DisplayName              string                         `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description              string                         `json:"description,omitempty" yaml:"description,omitempty"`
	BaseID                   BaseTypeID                     `json:"baseId" yaml:"baseId,omitempty"`
	ParentID                 string                         `json:"parentId,omitempty" yaml:"parentId"`
	Creatable                bool                           `json:"creatable" yaml:"creatable"`
	Fileable                 bool                           `json:"fileable" yaml:"fileable"`
	Queryable                bool                           `json:"queryable" yaml:"queryable"`
	ControllableACL          bool                           `json:"controllableACL" yaml:"controllableACL"`
	ControllablePolicy       bool                           `json:"controllablePolicy" yaml:"controllablePolicy"`
	IncludedInSupertypeQuery bool                           `json:"includedInSupertypeQuery" yaml:"includedInSupertypeQuery"`
	Versionable              bool                           `json:"versionable,omitempty" yaml:"versionable,omitempty"`
	ContentStreamAllowed     ContentStreamAllowed           `json:"contentStreamAllowed,omitempty" yaml:"contentStreamAllowed,omitempty"`
	AllowedSourceTypes       []string                       `json:"allowedSourceTypes,omitempty" yaml:"allowedSourceTypes,omitempty"`
	AllowedTargetTypes       []string                       `json:"allowedTargetTypes,omitempty" yaml:"allowedTargetTypes,omitempty"`
	PropertyDefinitions      map[string]*PropertyDefinition `json:"propertyDefinitions,omitempty" yaml:"-"`
	OwnPropertyDefinitions   []*PropertyDefinition          `json:"-" yaml:"properties,omitempty"`
}

// Clone returns a deep copy of t.
func (t *TypeDefinition) Clone() *TypeDefinition {
	if t == nil {
		return nil
	}
	c := *t
	c.AllowedSourceTypes = append([]string(nil), t.AllowedSourceTypes...)
	c.AllowedTargetTypes = append([]string(nil), t.AllowedTargetTypes...)
	if t.PropertyDefinitions != nil {
		c.PropertyDefinitions = make(map[string]*PropertyDefinition, len(t.PropertyDefinitions))
		for id, def := range t.PropertyDefinitions {
			c.PropertyDefinitions[id] = def.Clone()
		}
	}
	if t.OwnPropertyDefinitions != nil {
		c.OwnPropertyDefinitions = make([]*PropertyDefinition, len(t.OwnPropertyDefinitions))
		for i, def := range t.OwnPropertyDefinitions {
			c.OwnPropertyDefinitions[i] = def.Clone()
		}
	}
	return &c
}

// WithoutPropertyDefinitions returns a copy of t without its property
// definitions.
func (t *TypeDefinition) WithoutPropertyDefinitions() *TypeDefinition {
	c := *t
	c.PropertyDefinitions = nil
	c.OwnPropertyDefinitions = nil
	c.AllowedSourceTypes = append([]string(nil), t.AllowedSourceTypes...)
	c.AllowedTargetTypes = append([]string(nil), t.AllowedTargetTypes...)
	return &c
}

// PropertyDefinitionIDs returns the ids of the effective property
// definitions in sorted order.
func (t *TypeDefinition) PropertyDefinitionIDs() []string {
	ids := make([]string, 0, len(t.PropertyDefinitions))
	for id := range t.PropertyDefinitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TypeDefinitionList is a page of type definitions.
type TypeDefinitionList struct {
	Types        []*TypeDefinition `json:"types"`
	HasMoreItems bool              `json:"hasMoreItems"`
	NumItems     int               `json:"numItems"`
}

// TypeDefinitionContainer is a node of a type hierarchy.
type TypeDefinitionContainer struct {
	Type     *TypeDefinition            `json:"type"`
	Children []*TypeDefinitionContainer `json:"children,omitempty"`
}
