// Package linked defines the typed module the elaborator emits: the
// full definition list in core form, every predicate explicitly
// attached, and every implementation registered by interface and
// carrier head. Downstream consumers (the code generator) read this.
package linked

import (
	"encoding/json"

	"github.com/kirraObj-s-archives/rowscript/internal/core"
)

// Def is one elaborated definition.
type Def struct {
	Name   string
	Module string
	Cat    string
	Body   core.Term // nil for postulates and interfaces
	Type   core.Term
	Preds  []string // attached predicates, printed form
}

// Impl is one registered implementation entry.
type Impl struct {
	Interface   string
	CarrierHead string
	Name        string
}

// Module is the emitted module.
type Module struct {
	Defs  []Def
	Impls []Impl
}

// Def returns the first definition with the given name, or nil.
func (m *Module) Def(name string) *Def {
	for i := range m.Defs {
		if m.Defs[i].Name == name {
			return &m.Defs[i]
		}
	}
	return nil
}

// wireDef is the serialised form; terms travel in printed core syntax.
type wireDef struct {
	Name   string   `json:"name"`
	Module string   `json:"module,omitempty"`
	Cat    string   `json:"cat"`
	Body   string   `json:"body,omitempty"`
	Type   string   `json:"type,omitempty"`
	Preds  []string `json:"preds,omitempty"`
}

type wireImpl struct {
	Interface   string `json:"interface"`
	CarrierHead string `json:"carrier_head"`
	Name        string `json:"name"`
}

type wireModule struct {
	Schema string     `json:"schema"`
	Defs   []wireDef  `json:"defs"`
	Impls  []wireImpl `json:"impls,omitempty"`
}

// SchemaVersion tags the emitted JSON.
const SchemaVersion = "rowscript.module/v1"

// ToJSON serialises the module deterministically (definition order is
// elaboration order, which is itself deterministic).
func (m *Module) ToJSON(compact bool) (string, error) {
	w := wireModule{Schema: SchemaVersion}
	for _, d := range m.Defs {
		wd := wireDef{Name: d.Name, Module: d.Module, Cat: d.Cat, Preds: d.Preds}
		if d.Body != nil {
			wd.Body = d.Body.String()
		}
		if d.Type != nil {
			wd.Type = d.Type.String()
		}
		w.Defs = append(w.Defs, wd)
	}
	for _, im := range m.Impls {
		w.Impls = append(w.Impls, wireImpl(im))
	}
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(w)
	} else {
		data, err = json.MarshalIndent(w, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
