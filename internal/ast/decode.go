package ast

import (
	"encoding/json"
	"fmt"
)

// Wire decoding of parser output. The parser emits one JSON object per
// file; every node carries a "kind" discriminator. This is the whole
// contract with the external parser: the elaborator never sees source
// text, only these trees.

type wireNode struct {
	Kind string          `json:"kind"`
	Pos  Pos             `json:"pos"`
	Rest json.RawMessage `json:"-"`
}

// DecodeFile decodes a parser-emitted file. Input bytes are normalized
// (BOM, NFC) before decoding so identifier comparison is stable.
func DecodeFile(src []byte) (*File, error) {
	src = Normalize(src)

	var raw struct {
		Path    string            `json:"path"`
		Imports []json.RawMessage `json:"imports"`
		Defs    []json.RawMessage `json:"defs"`
		Pos     Pos               `json:"pos"`
	}
	if err := json.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("malformed surface file: %w", err)
	}

	f := &File{Path: raw.Path, Pos: raw.Pos}
	for i, imp := range raw.Imports {
		decl, err := decodeImport(imp)
		if err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
		f.Imports = append(f.Imports, decl)
	}
	for i, def := range raw.Defs {
		d, err := DecodeDef(def)
		if err != nil {
			return nil, fmt.Errorf("definition %d: %w", i, err)
		}
		f.Defs = append(f.Defs, d)
	}
	return f, nil
}

func decodeImport(src []byte) (*ImportDecl, error) {
	var raw struct {
		Kind  string   `json:"kind"` // "module", "names", "effects"
		Path  []string `json:"path"`
		Names []string `json:"names"`
		Pos   Pos      `json:"pos"`
	}
	if err := json.Unmarshal(src, &raw); err != nil {
		return nil, err
	}
	decl := &ImportDecl{Path: normalizeAll(raw.Path), Names: normalizeAll(raw.Names), Pos: raw.Pos}
	switch raw.Kind {
	case "module", "":
		decl.Kind = ImportModule
	case "names":
		decl.Kind = ImportNames
	case "effects":
		decl.Kind = ImportEffects
	default:
		return nil, fmt.Errorf("unknown import kind %q", raw.Kind)
	}
	return decl, nil
}

// DecodeDef decodes one top-level definition node.
func DecodeDef(src []byte) (Def, error) {
	var head wireNode
	if err := json.Unmarshal(src, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case "fn", "fn_postulate":
		var raw struct {
			Name      string            `json:"name"`
			Implicits []wireImplicit    `json:"implicits"`
			Params    []wireParam       `json:"params"`
			Ret       json.RawMessage   `json:"ret"`
			Where     []wirePredicate   `json:"where"`
			Body      []json.RawMessage `json:"body"`
			Pos       Pos               `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		d := &FnDef{Name: NormalizeName(raw.Name), Pos: raw.Pos}
		var err error
		if d.Implicits, err = decodeImplicits(raw.Implicits); err != nil {
			return nil, err
		}
		if d.Params, err = decodeParams(raw.Params); err != nil {
			return nil, err
		}
		if raw.Ret != nil {
			if d.Ret, err = DecodeType(raw.Ret); err != nil {
				return nil, err
			}
		}
		if d.Where, err = decodePredicates(raw.Where); err != nil {
			return nil, err
		}
		if head.Kind == "fn" {
			if d.Body, err = decodeBlock(raw.Body, raw.Pos); err != nil {
				return nil, err
			}
		}
		return d, nil

	case "type", "type_postulate":
		var raw struct {
			Name      string          `json:"name"`
			Implicits []wireImplicit  `json:"implicits"`
			Body      json.RawMessage `json:"body"`
			Pos       Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		d := &TypeDef{Name: NormalizeName(raw.Name), Pos: raw.Pos}
		var err error
		if d.Implicits, err = decodeImplicits(raw.Implicits); err != nil {
			return nil, err
		}
		if head.Kind == "type" {
			if d.Body, err = DecodeType(raw.Body); err != nil {
				return nil, err
			}
		}
		return d, nil

	case "class":
		var raw struct {
			Name      string            `json:"name"`
			Implicits []wireImplicit    `json:"implicits"`
			Fields    []wireParam       `json:"fields"`
			Methods   []json.RawMessage `json:"methods"`
			Pos       Pos               `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		d := &ClassDef{Name: NormalizeName(raw.Name), Pos: raw.Pos}
		var err error
		if d.Implicits, err = decodeImplicits(raw.Implicits); err != nil {
			return nil, err
		}
		if d.Fields, err = decodeParams(raw.Fields); err != nil {
			return nil, err
		}
		for _, m := range raw.Methods {
			md, err := DecodeDef(m)
			if err != nil {
				return nil, err
			}
			fn, ok := md.(*FnDef)
			if !ok {
				return nil, fmt.Errorf("class %s: method is not a function", raw.Name)
			}
			d.Methods = append(d.Methods, fn)
		}
		return d, nil

	case "interface":
		var raw struct {
			Name      string         `json:"name"`
			Carrier   wireImplicit   `json:"carrier"`
			Implicits []wireImplicit `json:"implicits"`
			Methods   []struct {
				Name      string          `json:"name"`
				Implicits []wireImplicit  `json:"implicits"`
				Params    []wireParam     `json:"params"`
				Ret       json.RawMessage `json:"ret"`
				Pos       Pos             `json:"pos"`
			} `json:"methods"`
			Pos Pos `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		d := &InterfaceDef{Name: NormalizeName(raw.Name), Pos: raw.Pos}
		carrier, err := decodeImplicits([]wireImplicit{raw.Carrier})
		if err != nil {
			return nil, err
		}
		d.Carrier = carrier[0]
		if d.Implicits, err = decodeImplicits(raw.Implicits); err != nil {
			return nil, err
		}
		for _, m := range raw.Methods {
			sig := MethodSig{Name: NormalizeName(m.Name), Pos: m.Pos}
			if sig.Implicits, err = decodeImplicits(m.Implicits); err != nil {
				return nil, err
			}
			if sig.Params, err = decodeParams(m.Params); err != nil {
				return nil, err
			}
			if m.Ret != nil {
				if sig.Ret, err = DecodeType(m.Ret); err != nil {
					return nil, err
				}
			}
			d.Methods = append(d.Methods, sig)
		}
		return d, nil

	case "implements":
		var raw struct {
			Interface wireQual          `json:"interface"`
			Carrier   json.RawMessage   `json:"carrier"`
			Methods   []json.RawMessage `json:"methods"`
			Pos       Pos               `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		d := &ImplementsDef{Interface: raw.Interface.ident(), Pos: raw.Pos}
		var err error
		if d.Carrier, err = DecodeType(raw.Carrier); err != nil {
			return nil, err
		}
		for _, m := range raw.Methods {
			md, err := DecodeDef(m)
			if err != nil {
				return nil, err
			}
			fn, ok := md.(*FnDef)
			if !ok {
				return nil, fmt.Errorf("implements %s: method is not a function", d.Interface.Name)
			}
			d.Methods = append(d.Methods, fn)
		}
		return d, nil

	case "const":
		var raw struct {
			Name  string          `json:"name"`
			Type  json.RawMessage `json:"type"`
			Value json.RawMessage `json:"value"`
			Pos   Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		d := &ConstDef{Name: NormalizeName(raw.Name), Pos: raw.Pos}
		var err error
		if raw.Type != nil {
			if d.Type, err = DecodeType(raw.Type); err != nil {
				return nil, err
			}
		}
		if d.Value, err = DecodeExpr(raw.Value); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown definition kind %q", head.Kind)
}

type wireImplicit struct {
	Name  string `json:"name"`
	Arity int    `json:"arity"`
	Pos   Pos    `json:"pos"`
}

type wireParam struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
	Pos  Pos             `json:"pos"`
}

type wirePredicate struct {
	Interface wireQual          `json:"interface"`
	Args      []json.RawMessage `json:"args"`
	Pos       Pos               `json:"pos"`
}

type wireQual struct {
	Segments []string `json:"segments"`
	Name     string   `json:"name"`
	Pos      Pos      `json:"pos"`
}

func (q wireQual) ident() *QualIdent {
	return &QualIdent{Segments: normalizeAll(q.Segments), Name: NormalizeName(q.Name), Pos: q.Pos}
}

func decodeImplicits(raw []wireImplicit) ([]ImplicitParam, error) {
	out := make([]ImplicitParam, len(raw))
	for i, r := range raw {
		if r.Arity < 0 {
			return nil, fmt.Errorf("implicit %s: negative kind arity", r.Name)
		}
		out[i] = ImplicitParam{Name: NormalizeName(r.Name), Kind: Kind{Arity: r.Arity}, Pos: r.Pos}
	}
	return out, nil
}

func decodeParams(raw []wireParam) ([]Param, error) {
	out := make([]Param, len(raw))
	for i, r := range raw {
		p := Param{Name: NormalizeName(r.Name), Pos: r.Pos}
		if r.Type != nil {
			t, err := DecodeType(r.Type)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", r.Name, err)
			}
			p.Type = t
		}
		out[i] = p
	}
	return out, nil
}

func decodePredicates(raw []wirePredicate) ([]Predicate, error) {
	out := make([]Predicate, len(raw))
	for i, r := range raw {
		p := Predicate{Interface: r.Interface.ident(), Pos: r.Pos}
		for _, a := range r.Args {
			t, err := DecodeType(a)
			if err != nil {
				return nil, err
			}
			p.Args = append(p.Args, t)
		}
		out[i] = p
	}
	return out, nil
}

func decodeBlock(raw []json.RawMessage, pos Pos) (*Block, error) {
	b := &Block{Pos: pos}
	for i, s := range raw {
		stmt, err := DecodeStmt(s)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		b.Stmts = append(b.Stmts, stmt)
	}
	return b, nil
}

// DecodeStmt decodes one statement node.
func DecodeStmt(src []byte) (Stmt, error) {
	var head wireNode
	if err := json.Unmarshal(src, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case "let":
		var raw struct {
			Name  string          `json:"name"`
			Type  json.RawMessage `json:"type"`
			Value json.RawMessage `json:"value"`
			Pos   Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		s := &Let{Name: NormalizeName(raw.Name), Pos: raw.Pos}
		var err error
		if raw.Type != nil {
			if s.Type, err = DecodeType(raw.Type); err != nil {
				return nil, err
			}
		}
		if s.Value, err = DecodeExpr(raw.Value); err != nil {
			return nil, err
		}
		return s, nil
	case "return":
		var raw struct {
			Value json.RawMessage `json:"value"`
			Pos   Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		s := &Return{Pos: raw.Pos}
		if raw.Value != nil {
			var err error
			if s.Value, err = DecodeExpr(raw.Value); err != nil {
				return nil, err
			}
		}
		return s, nil
	case "do", "while", "try":
		// Admitted by one grammar variant; the elaborator does not
		// accept them. Surfaced to the resolver for a proper report.
		return &BadStmt{Form: head.Kind, Pos: head.Pos}, nil
	default:
		e, err := DecodeExpr(src)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: e, Pos: head.Pos}, nil
	}
}

// DecodeExpr decodes one expression node.
func DecodeExpr(src []byte) (Expr, error) {
	var head wireNode
	if err := json.Unmarshal(src, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case "ident":
		var raw struct {
			Name string `json:"name"`
			Pos  Pos    `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		return &Ident{Name: NormalizeName(raw.Name), Pos: raw.Pos}, nil

	case "qual":
		var raw wireQual
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		return raw.ident(), nil

	case "string", "number", "bigint", "bool", "unit":
		return decodeLit(head.Kind, src)

	case "hole":
		return &Hole{Pos: head.Pos}, nil

	case "record":
		var raw struct {
			Fields []struct {
				Label string          `json:"label"`
				Value json.RawMessage `json:"value"`
			} `json:"fields"`
			Pos Pos `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		e := &RecordLit{Pos: raw.Pos}
		for _, f := range raw.Fields {
			v, err := DecodeExpr(f.Value)
			if err != nil {
				return nil, err
			}
			e.Fields = append(e.Fields, Field{Label: NormalizeName(f.Label), Value: v})
		}
		return e, nil

	case "record_concat":
		var raw struct {
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
			Pos   Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		l, err := DecodeExpr(raw.Left)
		if err != nil {
			return nil, err
		}
		r, err := DecodeExpr(raw.Right)
		if err != nil {
			return nil, err
		}
		return &RecordConcat{Left: l, Right: r, Pos: raw.Pos}, nil

	case "record_cast", "variant_cast":
		var raw struct {
			Expr json.RawMessage `json:"expr"`
			Pos  Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		inner, err := DecodeExpr(raw.Expr)
		if err != nil {
			return nil, err
		}
		if head.Kind == "record_cast" {
			return &RecordCast{Expr: inner, Pos: raw.Pos}, nil
		}
		return &VariantCast{Expr: inner, Pos: raw.Pos}, nil

	case "proj":
		var raw struct {
			Expr  json.RawMessage `json:"expr"`
			Label string          `json:"label"`
			Pos   Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		inner, err := DecodeExpr(raw.Expr)
		if err != nil {
			return nil, err
		}
		return &Proj{Expr: inner, Label: NormalizeName(raw.Label), Pos: raw.Pos}, nil

	case "variant":
		var raw struct {
			Label   string          `json:"label"`
			Payload json.RawMessage `json:"payload"`
			Pos     Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		e := &VariantLit{Label: NormalizeName(raw.Label), Pos: raw.Pos}
		if raw.Payload != nil {
			var err error
			if e.Payload, err = DecodeExpr(raw.Payload); err != nil {
				return nil, err
			}
		}
		return e, nil

	case "switch":
		var raw struct {
			Scrutinee json.RawMessage `json:"scrutinee"`
			Cases     []struct {
				Label  string          `json:"label"`
				Binder string          `json:"binder"`
				Body   json.RawMessage `json:"body"`
				Pos    Pos             `json:"pos"`
			} `json:"cases"`
			Pos Pos `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		scrut, err := DecodeExpr(raw.Scrutinee)
		if err != nil {
			return nil, err
		}
		e := &Switch{Scrutinee: scrut, Pos: raw.Pos}
		for _, c := range raw.Cases {
			body, err := DecodeExpr(c.Body)
			if err != nil {
				return nil, err
			}
			e.Cases = append(e.Cases, Case{
				Label:  NormalizeName(c.Label),
				Binder: NormalizeName(c.Binder),
				Body:   body,
				Pos:    c.Pos,
			})
		}
		return e, nil

	case "lambda":
		var raw struct {
			Params []wireParam     `json:"params"`
			Body   json.RawMessage `json:"body"`
			Pos    Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		params, err := decodeParams(raw.Params)
		if err != nil {
			return nil, err
		}
		body, err := DecodeExpr(raw.Body)
		if err != nil {
			return nil, err
		}
		return &Lambda{Params: params, Body: body, Pos: raw.Pos}, nil

	case "call":
		var raw struct {
			Fn       json.RawMessage `json:"fn"`
			TypeArgs []struct {
				Name string          `json:"name"`
				Type json.RawMessage `json:"type"`
			} `json:"type_args"`
			Args []json.RawMessage `json:"args"`
			Pos  Pos               `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		fn, err := DecodeExpr(raw.Fn)
		if err != nil {
			return nil, err
		}
		e := &Call{Fn: fn, Pos: raw.Pos}
		for _, ta := range raw.TypeArgs {
			t, err := DecodeType(ta.Type)
			if err != nil {
				return nil, err
			}
			e.TypeArgs = append(e.TypeArgs, TypeArg{Name: NormalizeName(ta.Name), Type: t})
		}
		for _, a := range raw.Args {
			arg, err := DecodeExpr(a)
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
		}
		return e, nil

	case "pipe":
		var raw struct {
			Value json.RawMessage `json:"value"`
			Call  json.RawMessage `json:"call"`
			Pos   Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		v, err := DecodeExpr(raw.Value)
		if err != nil {
			return nil, err
		}
		c, err := DecodeExpr(raw.Call)
		if err != nil {
			return nil, err
		}
		return &Pipe{Value: v, Call: c, Pos: raw.Pos}, nil

	case "new":
		var raw struct {
			Type json.RawMessage   `json:"type"`
			Args []json.RawMessage `json:"args"`
			Pos  Pos               `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		t, err := DecodeType(raw.Type)
		if err != nil {
			return nil, err
		}
		e := &New{Type: t, Pos: raw.Pos}
		for _, a := range raw.Args {
			arg, err := DecodeExpr(a)
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
		}
		return e, nil

	case "if":
		var raw struct {
			Cond json.RawMessage `json:"cond"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
			Pos  Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		c, err := DecodeExpr(raw.Cond)
		if err != nil {
			return nil, err
		}
		t, err := DecodeExpr(raw.Then)
		if err != nil {
			return nil, err
		}
		e, err := DecodeExpr(raw.Else)
		if err != nil {
			return nil, err
		}
		return &If{Cond: c, Then: t, Else: e, Pos: raw.Pos}, nil

	case "binop":
		var raw struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
			Pos   Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		l, err := DecodeExpr(raw.Left)
		if err != nil {
			return nil, err
		}
		r, err := DecodeExpr(raw.Right)
		if err != nil {
			return nil, err
		}
		return &BinOp{Op: raw.Op, Left: l, Right: r, Pos: raw.Pos}, nil

	case "block":
		var raw struct {
			Stmts []json.RawMessage `json:"stmts"`
			Pos   Pos               `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		return decodeBlock(raw.Stmts, raw.Pos)
	}
	return nil, fmt.Errorf("unknown expression kind %q", head.Kind)
}

func decodeLit(kind string, src []byte) (Expr, error) {
	var raw struct {
		Value json.RawMessage `json:"value"`
		Pos   Pos             `json:"pos"`
	}
	if err := json.Unmarshal(src, &raw); err != nil {
		return nil, err
	}
	lit := &Lit{Pos: raw.Pos}
	switch kind {
	case "string":
		lit.Kind = StringLit
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return nil, err
		}
		lit.Value = s
	case "number":
		lit.Kind = NumberLit
		var n float64
		if err := json.Unmarshal(raw.Value, &n); err != nil {
			return nil, err
		}
		lit.Value = n
	case "bigint":
		lit.Kind = BigintLit
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return nil, err
		}
		lit.Value = s
	case "bool":
		lit.Kind = BoolLit
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return nil, err
		}
		lit.Value = b
	case "unit":
		lit.Kind = UnitLit
	}
	return lit, nil
}

// DecodeType decodes one type node.
func DecodeType(src []byte) (Type, error) {
	var head wireNode
	if err := json.Unmarshal(src, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case "named":
		var raw struct {
			Segments []string          `json:"segments"`
			Name     string            `json:"name"`
			Args     []json.RawMessage `json:"args"`
			Pos      Pos               `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		t := &NamedType{Segments: normalizeAll(raw.Segments), Name: NormalizeName(raw.Name), Pos: raw.Pos}
		for _, a := range raw.Args {
			arg, err := DecodeType(a)
			if err != nil {
				return nil, err
			}
			t.Args = append(t.Args, arg)
		}
		return t, nil

	case "func":
		var raw struct {
			Params []wireParam     `json:"params"`
			Ret    json.RawMessage `json:"ret"`
			Pos    Pos             `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		params, err := decodeParams(raw.Params)
		if err != nil {
			return nil, err
		}
		ret, err := DecodeType(raw.Ret)
		if err != nil {
			return nil, err
		}
		return &FuncType{Params: params, Ret: ret, Pos: raw.Pos}, nil

	case "record_type", "variant_type":
		var raw struct {
			Fields []struct {
				Label string          `json:"label"`
				Type  json.RawMessage `json:"type"`
			} `json:"fields"`
			Row string `json:"row"`
			Pos Pos    `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		var fields []TypeField
		for _, f := range raw.Fields {
			tf := TypeField{Label: NormalizeName(f.Label)}
			if f.Type != nil {
				t, err := DecodeType(f.Type)
				if err != nil {
					return nil, err
				}
				tf.Type = t
			}
			fields = append(fields, tf)
		}
		if head.Kind == "record_type" {
			return &RecordType{Fields: fields, Row: NormalizeName(raw.Row), Pos: raw.Pos}, nil
		}
		return &VariantType{Cases: fields, Row: NormalizeName(raw.Row), Pos: raw.Pos}, nil

	case "row":
		var raw struct {
			Name string `json:"name"`
			Pos  Pos    `json:"pos"`
		}
		if err := json.Unmarshal(src, &raw); err != nil {
			return nil, err
		}
		return &RowRef{Name: NormalizeName(raw.Name), Pos: raw.Pos}, nil

	case "hole":
		return &HoleType{Pos: head.Pos}, nil
	}
	return nil, fmt.Errorf("unknown type kind %q", head.Kind)
}

func normalizeAll(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeName(n)
	}
	return out
}
