package typesys

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// File is the YAML layout of a type definition file.
//
//	types:
//	  - id: my:invoice
//	    parentId: cmis:document
//	    versionable: true
//	    properties:
//	      - id: my:amount
//	        type: decimal
//	        required: true
type File struct {
	Types []*cmis.TypeDefinition `yaml:"types"`
}

// LoadYAML registers the types defined in r and returns how many were
// added. Types may be listed in any order; a type is added once its
// parent is known.
func (m *Manager) LoadYAML(r io.Reader) (int, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode type definitions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := f.Types
	added := 0
	for len(pending) > 0 {
		var next []*cmis.TypeDefinition
		for _, def := range pending {
			if def == nil {
				continue
			}
			if _, ok := m.types[def.ParentID]; !ok && def.ParentID != "" {
				next = append(next, def)
				continue
			}
			if err := m.addType(def); err != nil {
				return added, err
			}
			added++
		}
		if len(next) == len(pending) {
			return added, cmis.Errorf(cmis.KindObjectNotFound, "parent type %s of %s not found", next[0].ParentID, next[0].ID)
		}
		pending = next
	}
	return added, nil
}

// LoadFile registers the types defined in the YAML file at path.
func (m *Manager) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open type definitions: %w", err)
	}
	defer f.Close()
	return m.LoadYAML(f)
}

// WriteYAML writes all types that are not base types to w in the layout
// read by LoadYAML.
func (m *Manager) WriteYAML(w io.Writer) error {
	var f File
	for _, td := range m.Types() {
		if cmis.IsBaseType(td.ID) {
			continue
		}
		f.Types = append(f.Types, td)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("encode type definitions: %w", err)
	}
	return enc.Close()
}
