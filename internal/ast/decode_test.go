package ast

import (
	"testing"
)

func TestNormalizeStripsBOMAndNFC(t *testing.T) {
	// "é" as e + combining acute (NFD) must normalise to the composed
	// form; the BOM must disappear.
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("café")...)
	got := string(Normalize(src))
	if got != "café" {
		t.Errorf("Normalize = %q, want %q", got, "café")
	}
	if NormalizeName("é") != "é" {
		t.Error("NormalizeName should compose to NFC")
	}
}

func TestDecodeFile(t *testing.T) {
	src := `{
		"path": "main",
		"imports": [
			{"kind": "names", "path": ["util"], "names": ["helper"], "pos": {"line": 1, "column": 1}}
		],
		"defs": [
			{
				"kind": "fn",
				"name": "f",
				"params": [{"name": "a", "type": {"kind": "named", "name": "number", "pos": {"line": 2, "column": 10}}}],
				"ret": {"kind": "named", "name": "number", "pos": {"line": 2, "column": 20}},
				"body": [
					{"kind": "return", "value": {"kind": "ident", "name": "a", "pos": {"line": 3, "column": 5}}, "pos": {"line": 3, "column": 1}}
				],
				"pos": {"line": 2, "column": 1}
			}
		],
		"pos": {"line": 1, "column": 1}
	}`

	f, err := DecodeFile([]byte(src))
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if f.Path != "main" {
		t.Errorf("path = %q", f.Path)
	}
	if len(f.Imports) != 1 || f.Imports[0].Kind != ImportNames || f.Imports[0].Names[0] != "helper" {
		t.Errorf("imports decoded wrong: %+v", f.Imports)
	}
	if len(f.Defs) != 1 {
		t.Fatalf("defs = %d", len(f.Defs))
	}
	fn, ok := f.Defs[0].(*FnDef)
	if !ok {
		t.Fatalf("definition is %T", f.Defs[0])
	}
	if fn.Name != "f" || len(fn.Params) != 1 || fn.Params[0].Name != "a" {
		t.Errorf("function decoded wrong: %s", fn)
	}
	if fn.Body == nil || len(fn.Body.Stmts) != 1 {
		t.Fatal("body missing")
	}
	if _, ok := fn.Body.Stmts[0].(*Return); !ok {
		t.Errorf("statement is %T, want *Return", fn.Body.Stmts[0])
	}
}

func TestDecodeExprForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string // String() rendering
	}{
		{"record", `{"kind":"record","fields":[{"label":"n","value":{"kind":"number","value":42}}]}`, "{n: 42}"},
		{"variant", `{"kind":"variant","label":"Some","payload":{"kind":"number","value":1}}`, "Some(1)"},
		{"cast", `{"kind":"record_cast","expr":{"kind":"ident","name":"e"}}`, "{...e}"},
		{"enum_cast", `{"kind":"variant_cast","expr":{"kind":"ident","name":"e"}}`, "[...e]"},
		{"proj", `{"kind":"proj","expr":{"kind":"ident","name":"o"},"label":"m"}`, "o.m"},
		{"pipe", `{"kind":"pipe","value":{"kind":"ident","name":"x"},"call":{"kind":"ident","name":"f"}}`, "x |> f"},
		{"hole", `{"kind":"hole"}`, "?"},
		{"unit", `{"kind":"unit"}`, "()"},
		{"binop", `{"kind":"binop","op":"+","left":{"kind":"ident","name":"a"},"right":{"kind":"ident","name":"b"}}`, "(a + b)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := DecodeExpr([]byte(tt.src))
			if err != nil {
				t.Fatalf("DecodeExpr: %v", err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeRejectsUnknownKinds(t *testing.T) {
	if _, err := DecodeExpr([]byte(`{"kind":"mystery"}`)); err == nil {
		t.Error("unknown expression kind should fail")
	}
	if _, err := DecodeType([]byte(`{"kind":"mystery"}`)); err == nil {
		t.Error("unknown type kind should fail")
	}
}

func TestDecodeBadStmtForms(t *testing.T) {
	s, err := DecodeStmt([]byte(`{"kind":"while","pos":{"line":4,"column":2}}`))
	if err != nil {
		t.Fatalf("DecodeStmt: %v", err)
	}
	bad, ok := s.(*BadStmt)
	if !ok || bad.Form != "while" {
		t.Errorf("got %T %v, want BadStmt while", s, s)
	}
}

func TestDecodeVariantType(t *testing.T) {
	src := `{"kind":"variant_type","fields":[{"label":"None"},{"label":"Some","type":{"kind":"named","name":"number"}}],"row":"r"}`
	ty, err := DecodeType([]byte(src))
	if err != nil {
		t.Fatalf("DecodeType: %v", err)
	}
	vt, ok := ty.(*VariantType)
	if !ok {
		t.Fatalf("type is %T", ty)
	}
	if len(vt.Cases) != 2 || vt.Cases[0].Type != nil || vt.Cases[1].Type == nil {
		t.Errorf("cases decoded wrong: %s", vt)
	}
	if vt.Row != "r" {
		t.Errorf("row = %q", vt.Row)
	}
}
