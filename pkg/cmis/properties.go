package cmis

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// System property ids
const (
	PropObjectID                  = "cmis:objectId"
	PropName                      = "cmis:name"
	PropDescription               = "cmis:description"
	PropObjectTypeID              = "cmis:objectTypeId"
	PropBaseTypeID                = "cmis:baseTypeId"
	PropCreatedBy                 = "cmis:createdBy"
	PropCreationDate              = "cmis:creationDate"
	PropLastModifiedBy            = "cmis:lastModifiedBy"
	PropLastModificationDate      = "cmis:lastModificationDate"
	PropChangeToken               = "cmis:changeToken"
	PropParentID                  = "cmis:parentId"
	PropPath                      = "cmis:path"
	PropAllowedChildObjectTypeIDs = "cmis:allowedChildObjectTypeIds"
	PropIsImmutable               = "cmis:isImmutable"
	PropIsLatestVersion           = "cmis:isLatestVersion"
	PropIsMajorVersion            = "cmis:isMajorVersion"
	PropIsLatestMajorVersion      = "cmis:isLatestMajorVersion"
	PropIsPrivateWorkingCopy      = "cmis:isPrivateWorkingCopy"
	PropVersionLabel              = "cmis:versionLabel"
	PropVersionSeriesID           = "cmis:versionSeriesId"
	PropIsVersionSeriesCheckedOut = "cmis:isVersionSeriesCheckedOut"
	PropVersionSeriesCheckedOutBy = "cmis:versionSeriesCheckedOutBy"
	PropVersionSeriesCheckedOutID = "cmis:versionSeriesCheckedOutId"
	PropCheckinComment            = "cmis:checkinComment"
	PropContentStreamLength       = "cmis:contentStreamLength"
	PropContentStreamMimeType     = "cmis:contentStreamMimeType"
	PropContentStreamFileName     = "cmis:contentStreamFileName"
	PropContentStreamID           = "cmis:contentStreamId"
	PropSourceID                  = "cmis:sourceId"
	PropTargetID                  = "cmis:targetId"
	PropPolicyText                = "cmis:policyText"
)

var systemProperties = map[string]struct{}{
	PropObjectID: {}, PropName: {}, PropDescription: {}, PropObjectTypeID: {},
	PropBaseTypeID: {}, PropCreatedBy: {}, PropCreationDate: {},
	PropLastModifiedBy: {}, PropLastModificationDate: {}, PropChangeToken: {},
	PropParentID: {}, PropPath: {}, PropAllowedChildObjectTypeIDs: {},
	PropIsImmutable: {}, PropIsLatestVersion: {}, PropIsMajorVersion: {},
	PropIsLatestMajorVersion: {}, PropIsPrivateWorkingCopy: {},
	PropVersionLabel: {}, PropVersionSeriesID: {},
	PropIsVersionSeriesCheckedOut: {}, PropVersionSeriesCheckedOutBy: {},
	PropVersionSeriesCheckedOutID: {}, PropCheckinComment: {},
	PropContentStreamLength: {}, PropContentStreamMimeType: {},
	PropContentStreamFileName: {}, PropContentStreamID: {},
	PropSourceID: {}, PropTargetID: {}, PropPolicyText: {},
}

// IsSystemProperty reports whether id is a property maintained by the
// repository rather than a custom property of a type.
func IsSystemProperty(id string) bool {
	_, ok := systemProperties[id]
	return ok
}

// PropertyType is the data type of a property.
type PropertyType string

const (
	PropertyTypeString   PropertyType = "string"
	PropertyTypeBoolean  PropertyType = "boolean"
	PropertyTypeInteger  PropertyType = "integer"
	PropertyTypeDecimal  PropertyType = "decimal"
	PropertyTypeDateTime PropertyType = "datetime"
	PropertyTypeID       PropertyType = "id"
	PropertyTypeHTML     PropertyType = "html"
	PropertyTypeURI      PropertyType = "uri"
)

// Cardinality tells whether a property holds one or many values.
type Cardinality string

const (
	CardinalitySingle Cardinality = "single"
	CardinalityMulti  Cardinality = "multi"
)

// Updatability tells when a property may be written.
type Updatability string

const (
	UpdatabilityReadOnly       Updatability = "readonly"
	UpdatabilityReadWrite      Updatability = "readwrite"
	UpdatabilityWhenCheckedOut Updatability = "whencheckedout"
	UpdatabilityOnCreate       Updatability = "oncreate"
)

// Property is a property value set. An empty Values slice deletes the
// property on update.
//
// Go value types per PropertyType: string for string, id, html and uri;
// bool for boolean; int64 for integer; float64 for decimal; time.Time for
// datetime.
type Property struct {
	ID     string       `json:"id"`
	Type   PropertyType `json:"type"`
	Values []any        `json:"values"`
}

// FirstValue returns the first value or nil.
func (p Property) FirstValue() any {
	if len(p.Values) == 0 {
		return nil
	}
	return p.Values[0]
}

// Clone returns a copy of p that does not share its value slice.
func (p Property) Clone() Property {
	c := p
	c.Values = append([]any(nil), p.Values...)
	return c
}

// NewStringProperty creates a string property.
func NewStringProperty(id string, values ...string) Property {
	return Property{ID: id, Type: PropertyTypeString, Values: toAny(values)}
}

// NewIDProperty creates an id property.
func NewIDProperty(id string, values ...string) Property {
	return Property{ID: id, Type: PropertyTypeID, Values: toAny(values)}
}

// NewBooleanProperty creates a boolean property.
func NewBooleanProperty(id string, values ...bool) Property {
	return Property{ID: id, Type: PropertyTypeBoolean, Values: toAny(values)}
}

// NewIntegerProperty creates an integer property.
func NewIntegerProperty(id string, values ...int64) Property {
	return Property{ID: id, Type: PropertyTypeInteger, Values: toAny(values)}
}

// NewDecimalProperty creates a decimal property.
func NewDecimalProperty(id string, values ...float64) Property {
	return Property{ID: id, Type: PropertyTypeDecimal, Values: toAny(values)}
}

// NewDateTimeProperty creates a datetime property.
func NewDateTimeProperty(id string, values ...time.Time) Property {
	return Property{ID: id, Type: PropertyTypeDateTime, Values: toAny(values)}
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Properties maps property ids to property values.
type Properties map[string]Property

// NewProperties builds a Properties map from a list of properties.
func NewProperties(props ...Property) Properties {
	m := make(Properties, len(props))
	for _, p := range props {
		m[p.ID] = p
	}
	return m
}

// Set adds or replaces a property.
func (p Properties) Set(prop Property) {
	p[prop.ID] = prop
}

// String returns the first value of a string-like property or "".
func (p Properties) String(id string) string {
	prop, ok := p[id]
	if !ok {
		return ""
	}
	s, _ := prop.FirstValue().(string)
	return s
}

// Strings returns all values of a string-like property.
func (p Properties) Strings(id string) []string {
	prop, ok := p[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(prop.Values))
	for _, v := range prop.Values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Bool returns the first value of a boolean property.
func (p Properties) Bool(id string) (bool, bool) {
	prop, ok := p[id]
	if !ok {
		return false, false
	}
	b, ok := prop.FirstValue().(bool)
	return b, ok
}

// Clone deep-copies the map and its value slices.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	c := make(Properties, len(p))
	for id, prop := range p {
		c[id] = prop.Clone()
	}
	return c
}

// IDs returns the property ids in sorted order.
func (p Properties) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NormalizeValue converts v to the canonical Go type of t. Integer kinds
// become int64, floating kinds become float64. Integral floats are
// accepted for integer properties so that values decoded from JSON or
// YAML validate.
func NormalizeValue(t PropertyType, v any) (any, error) {
	switch t {
	case PropertyTypeString, PropertyTypeID, PropertyTypeHTML, PropertyTypeURI:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case PropertyTypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case PropertyTypeInteger:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return int64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
				return int64(f), nil
			}
		}
	case PropertyTypeDecimal:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		}
	case PropertyTypeDateTime:
		switch tv := v.(type) {
		case time.Time:
			return tv, nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, tv)
			if err == nil {
				return parsed, nil
			}
		}
	}
	return nil, fmt.Errorf("value %v (%T) is not a valid %s", v, v, t)
}

// ValuesEqual compares two values after normalization to t.
func ValuesEqual(t PropertyType, a, b any) bool {
	na, err := NormalizeValue(t, a)
	if err != nil {
		return false
	}
	nb, err := NormalizeValue(t, b)
	if err != nil {
		return false
	}
	if ta, ok := na.(time.Time); ok {
		return ta.Equal(nb.(time.Time))
	}
	return na == nb
}
