package typesys_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/typesys"
)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }

func validationType(t *testing.T) *cmis.TypeDefinition {
	t.Helper()
	m := typesys.NewManager()
	require.NoError(t, m.AddType(&cmis.TypeDefinition{
		ID:       "test:validated",
		ParentID: "cmis:document",
		OwnPropertyDefinitions: []*cmis.PropertyDefinition{
			{ID: "test:count", Type: cmis.PropertyTypeInteger, MinInteger: int64Ptr(1), MaxInteger: int64Ptr(10)},
			{ID: "test:ratio", Type: cmis.PropertyTypeDecimal, MinDecimal: float64Ptr(0), MaxDecimal: float64Ptr(1)},
			{ID: "test:code", Type: cmis.PropertyTypeString, MaxLength: intPtr(3)},
			{ID: "test:tags", Type: cmis.PropertyTypeString, Cardinality: cmis.CardinalityMulti},
			{ID: "test:required", Type: cmis.PropertyTypeString, Required: true},
			{ID: "test:color", Type: cmis.PropertyTypeString, Choices: []cmis.Choice{
				{DisplayName: "red", Values: []any{"red"}},
				{DisplayName: "blue", Values: []any{"blue"}},
			}},
			{ID: "test:colors", Type: cmis.PropertyTypeString, Cardinality: cmis.CardinalityMulti, Choices: []cmis.Choice{
				{DisplayName: "red", Values: []any{"red"}},
				{DisplayName: "blue", Values: []any{"blue"}},
			}},
			{ID: "test:pair", Type: cmis.PropertyTypeInteger, Cardinality: cmis.CardinalityMulti, Choices: []cmis.Choice{
				{DisplayName: "low", Values: []any{1, 2}},
				{DisplayName: "high", Values: []any{8, 9}},
			}},
			{ID: "test:open", Type: cmis.PropertyTypeString, OpenChoice: true, Choices: []cmis.Choice{
				{DisplayName: "x", Values: []any{"x"}},
			}},
			{ID: "test:fixed", Type: cmis.PropertyTypeString, Updatability: cmis.UpdatabilityOnCreate},
			{ID: "test:locked", Type: cmis.PropertyTypeString, Updatability: cmis.UpdatabilityReadOnly},
			{ID: "test:draft", Type: cmis.PropertyTypeString, Updatability: cmis.UpdatabilityWhenCheckedOut},
			{ID: "test:level", Type: cmis.PropertyTypeInteger, DefaultValue: []any{3}},
		},
	}))
	td, err := m.Type("test:validated")
	require.NoError(t, err)
	return td
}

func TestValidator_ValidateProperties(t *testing.T) {
	td := validationType(t)
	v := typesys.NewValidator()
	required := cmis.NewStringProperty("test:required", "yes")

	tests := []struct {
		name  string
		props []cmis.Property
		want  error
	}{
		{"valid", []cmis.Property{required, {ID: "test:count", Values: []any{5}}}, nil},
		{"system properties skipped", []cmis.Property{required, cmis.NewStringProperty(cmis.PropName, "a", "b")}, nil},
		{"unknown property", []cmis.Property{required, cmis.NewStringProperty("test:unknown", "x")}, cmis.ErrConstraint},
		{"wrong kind", []cmis.Property{required, {ID: "test:count", Values: []any{"five"}}}, cmis.ErrConstraint},
		{"declared type mismatch", []cmis.Property{required, cmis.NewStringProperty("test:count", "5")}, cmis.ErrConstraint},
		{"single cardinality", []cmis.Property{required, cmis.NewIntegerProperty("test:count", 2, 3)}, cmis.ErrConstraint},
		{"multi cardinality", []cmis.Property{required, cmis.NewStringProperty("test:tags", "a", "b")}, nil},
		{"integer below min", []cmis.Property{required, cmis.NewIntegerProperty("test:count", 0)}, cmis.ErrConstraint},
		{"integer above max", []cmis.Property{required, cmis.NewIntegerProperty("test:count", 11)}, cmis.ErrConstraint},
		{"decimal in range", []cmis.Property{required, cmis.NewDecimalProperty("test:ratio", 0.5)}, nil},
		{"decimal above max", []cmis.Property{required, cmis.NewDecimalProperty("test:ratio", 1.5)}, cmis.ErrConstraint},
		{"string too long", []cmis.Property{required, cmis.NewStringProperty("test:code", "abcd")}, cmis.ErrConstraint},
		{"string at max length", []cmis.Property{required, cmis.NewStringProperty("test:code", "äöü")}, nil},
		{"choice", []cmis.Property{required, cmis.NewStringProperty("test:color", "red")}, nil},
		{"not a choice", []cmis.Property{required, cmis.NewStringProperty("test:color", "green")}, cmis.ErrConstraint},
		{"flat multi choice", []cmis.Property{required, cmis.NewStringProperty("test:colors", "blue", "red")}, nil},
		{"flat multi choice with stranger", []cmis.Property{required, cmis.NewStringProperty("test:colors", "blue", "green")}, cmis.ErrConstraint},
		{"tuple choice", []cmis.Property{required, cmis.NewIntegerProperty("test:pair", 8, 9)}, nil},
		{"tuple out of order", []cmis.Property{required, cmis.NewIntegerProperty("test:pair", 9, 8)}, cmis.ErrConstraint},
		{"tuple mixed", []cmis.Property{required, cmis.NewIntegerProperty("test:pair", 1, 9)}, cmis.ErrConstraint},
		{"open choice", []cmis.Property{required, cmis.NewStringProperty("test:open", "anything")}, nil},
		{"missing required", []cmis.Property{cmis.NewIntegerProperty("test:count", 5)}, cmis.ErrConstraint},
		{"empty required", []cmis.Property{cmis.NewStringProperty("test:required")}, cmis.ErrConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateProperties(td, cmis.NewProperties(tt.props...), true)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("normalizes values and applies defaults", func(t *testing.T) {
		out, err := v.ValidateProperties(td, cmis.NewProperties(required, cmis.Property{ID: "test:count", Values: []any{7}}, cmis.NewStringProperty(cmis.PropName, "doc")), true)
		require.NoError(t, err)
		assert.Equal(t, int64(7), out["test:count"].FirstValue())
		assert.Equal(t, cmis.PropertyTypeInteger, out["test:count"].Type)
		assert.Equal(t, int64(3), out["test:level"].FirstValue())
		assert.NotContains(t, out, cmis.PropName)
	})

	t.Run("mandatory check off", func(t *testing.T) {
		_, err := v.ValidateProperties(td, cmis.NewProperties(cmis.NewIntegerProperty("test:count", 5)), false)
		assert.NoError(t, err)
	})
}

func TestValidator_ValidateUpdate(t *testing.T) {
	td := validationType(t)
	v := typesys.NewValidator()

	tests := []struct {
		name       string
		prop       cmis.Property
		checkedOut bool
		want       error
	}{
		{"read-write", cmis.NewIntegerProperty("test:count", 4), false, nil},
		{"delete optional", cmis.NewIntegerProperty("test:count"), false, nil},
		{"delete required", cmis.NewStringProperty("test:required"), false, cmis.ErrConstraint},
		{"on create", cmis.NewStringProperty("test:fixed", "x"), false, cmis.ErrConstraint},
		{"read-only", cmis.NewStringProperty("test:locked", "x"), false, cmis.ErrConstraint},
		{"when checked out, not checked out", cmis.NewStringProperty("test:draft", "x"), false, cmis.ErrUpdateConflict},
		{"when checked out, delete not checked out", cmis.NewStringProperty("test:draft"), false, cmis.ErrUpdateConflict},
		{"when checked out, checked out", cmis.NewStringProperty("test:draft", "x"), true, nil},
		{"range still checked", cmis.NewIntegerProperty("test:count", 40), true, cmis.ErrConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateUpdate(td, cmis.NewProperties(tt.prop), tt.checkedOut)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
