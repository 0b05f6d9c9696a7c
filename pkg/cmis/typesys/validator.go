package typesys

import (
	"unicode/utf8"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// Validator checks property sets against a type definition. System
// properties are maintained by the repository and are skipped.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProperties validates props for a new object of type td and
// returns the custom properties with values normalized to their canonical
// Go types. With checkMandatory set, defaults are applied to absent
// properties and every required property must then be present.
func (v *Validator) ValidateProperties(td *cmis.TypeDefinition, props cmis.Properties, checkMandatory bool) (cmis.Properties, error) {
	out, err := v.validate(td, props)
	if err != nil {
		return nil, err
	}
	if !checkMandatory {
		return out, nil
	}
	for _, id := range td.PropertyDefinitionIDs() {
		def := td.PropertyDefinitions[id]
		if cmis.IsSystemProperty(id) {
			continue
		}
		if p, ok := out[id]; ok && len(p.Values) > 0 {
			continue
		}
		if len(def.DefaultValue) > 0 {
			out[id] = cmis.Property{ID: id, Type: def.Type, Values: append([]any(nil), def.DefaultValue...)}
			continue
		}
		if def.Required {
			return nil, cmis.Errorf(cmis.KindConstraint, "missing required property %s", id)
		}
	}
	return out, nil
}

// ValidateUpdate validates a property update on an object of type td.
// Properties with no values are deletions. The update must respect each
// property's updatability; properties writable only while checked out
// are rejected with an update conflict unless checkedOut is set.
func (v *Validator) ValidateUpdate(td *cmis.TypeDefinition, props cmis.Properties, checkedOut bool) (cmis.Properties, error) {
	out, err := v.validate(td, props)
	if err != nil {
		return nil, err
	}
	for id, p := range out {
		def := td.PropertyDefinitions[id]
		switch def.Updatability {
		case cmis.UpdatabilityReadOnly:
			return nil, cmis.Errorf(cmis.KindConstraint, "property %s is read-only", id)
		case cmis.UpdatabilityOnCreate:
			return nil, cmis.Errorf(cmis.KindConstraint, "property %s can only be set on create", id)
		case cmis.UpdatabilityWhenCheckedOut:
			if !checkedOut {
				return nil, cmis.Errorf(cmis.KindUpdateConflict, "property %s can only be updated on a checked out document", id)
			}
		}
		if len(p.Values) == 0 && def.Required {
			return nil, cmis.Errorf(cmis.KindConstraint, "required property %s cannot be deleted", id)
		}
	}
	return out, nil
}

func (v *Validator) validate(td *cmis.TypeDefinition, props cmis.Properties) (cmis.Properties, error) {
	if td == nil {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "type definition is required")
	}
	out := make(cmis.Properties, len(props))
	for id, p := range props {
		if cmis.IsSystemProperty(id) {
			continue
		}
		def, ok := td.PropertyDefinitions[id]
		if !ok {
			return nil, cmis.Errorf(cmis.KindConstraint, "unknown property %s for type %s", id, td.ID)
		}
		normalized, err := checkProperty(def, p)
		if err != nil {
			return nil, err
		}
		out[id] = normalized
	}
	return out, nil
}

func checkProperty(def *cmis.PropertyDefinition, p cmis.Property) (cmis.Property, error) {
	if p.Type != "" && p.Type != def.Type {
		return p, cmis.Errorf(cmis.KindConstraint, "property %s has type %s, expected %s", def.ID, p.Type, def.Type)
	}
	if def.Cardinality == cmis.CardinalitySingle && len(p.Values) > 1 {
		return p, cmis.Errorf(cmis.KindConstraint, "property %s is single-valued", def.ID)
	}

	out := cmis.Property{ID: def.ID, Type: def.Type, Values: make([]any, 0, len(p.Values))}
	for _, raw := range p.Values {
		val, err := cmis.NormalizeValue(def.Type, raw)
		if err != nil {
			return p, cmis.Errorf(cmis.KindConstraint, "property %s: %v", def.ID, err)
		}
		if err := checkRange(def, val); err != nil {
			return p, err
		}
		out.Values = append(out.Values, val)
	}

	if len(out.Values) > 0 && len(def.Choices) > 0 && !def.OpenChoice && !matchesChoices(def, out.Values) {
		return p, cmis.Errorf(cmis.KindConstraint, "property %s value %v is not an allowed choice", def.ID, out.Values)
	}
	return out, nil
}

func checkRange(def *cmis.PropertyDefinition, val any) error {
	switch x := val.(type) {
	case int64:
		if def.MinInteger != nil && x < *def.MinInteger {
			return cmis.Errorf(cmis.KindConstraint, "property %s value %d is below minimum %d", def.ID, x, *def.MinInteger)
		}
		if def.MaxInteger != nil && x > *def.MaxInteger {
			return cmis.Errorf(cmis.KindConstraint, "property %s value %d is above maximum %d", def.ID, x, *def.MaxInteger)
		}
	case float64:
		if def.MinDecimal != nil && x < *def.MinDecimal {
			return cmis.Errorf(cmis.KindConstraint, "property %s value %g is below minimum %g", def.ID, x, *def.MinDecimal)
		}
		if def.MaxDecimal != nil && x > *def.MaxDecimal {
			return cmis.Errorf(cmis.KindConstraint, "property %s value %g is above maximum %g", def.ID, x, *def.MaxDecimal)
		}
	case string:
		if def.MaxLength != nil && utf8.RuneCountInString(x) > *def.MaxLength {
			return cmis.Errorf(cmis.KindConstraint, "property %s exceeds maximum length %d", def.ID, *def.MaxLength)
		}
	}
	return nil
}

// matchesChoices accepts values that equal the value tuple of one choice
// exactly, in order. When every choice holds a single value, each value
// may also be picked from that flat list independently.
func matchesChoices(def *cmis.PropertyDefinition, values []any) bool {
	flat := true
	var match func(choices []cmis.Choice) bool
	match = func(choices []cmis.Choice) bool {
		for _, c := range choices {
			if len(c.Values) > 1 {
				flat = false
			}
			if tupleEqual(def.Type, c.Values, values) {
				return true
			}
			if match(c.Choices) {
				return true
			}
		}
		return false
	}
	if match(def.Choices) {
		return true
	}
	if !flat {
		return false
	}
	for _, v := range values {
		if !inFlatChoices(def.Type, def.Choices, v) {
			return false
		}
	}
	return true
}

func inFlatChoices(t cmis.PropertyType, choices []cmis.Choice, v any) bool {
	for _, c := range choices {
		if len(c.Values) == 1 && cmis.ValuesEqual(t, c.Values[0], v) {
			return true
		}
		if inFlatChoices(t, c.Choices, v) {
			return true
		}
	}
	return false
}

func tupleEqual(t cmis.PropertyType, a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !cmis.ValuesEqual(t, a[i], b[i]) {
			return false
		}
	}
	return true
}
