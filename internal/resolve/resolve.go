package resolve

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
)

// TargetKind tags one identifier occurrence.
type TargetKind int

const (
	// TargetGlobal is a reference to a resolved definition.
	TargetGlobal TargetKind = iota
	// TargetLocal is a let- or case-bound local.
	TargetLocal
	// TargetParam is a function, lambda, or implicit parameter.
	TargetParam
	// TargetBuiltin is one of the reserved names.
	TargetBuiltin
	// TargetMethod is an overloaded interface-method occurrence; it
	// becomes an OvRef during elaboration, not a direct Ref.
	TargetMethod
	// TargetUnknown marks an unresolved occurrence (already reported).
	TargetUnknown
)

// Target is the resolved meaning of one occurrence.
type Target struct {
	Kind   TargetKind
	Global *Global // definition, builtin, or the interface of a method
	Method string  // method name for TargetMethod
}

// Resolution is the resolver output consumed by the elaborator.
type Resolution struct {
	Table   *Table
	Targets map[ast.Node]Target
	// Order is the topological elaboration order over reference edges.
	Order []*Global
	// Errors collects all resolution reports; definitions named in it
	// are opaque downstream.
	Errors *rerr.Bag
}

// Target returns the recorded target for a node.
func (r *Resolution) Target(n ast.Node) (Target, bool) {
	t, ok := r.Targets[n]
	return t, ok
}

type resolver struct {
	table   *Table
	targets map[ast.Node]Target
	deps    map[core.GlobalID]map[core.GlobalID]bool
	bag     *rerr.Bag
	modules map[string]bool

	// per-file state
	module    string
	imported  map[string]*Global // from-import names
	methods   map[string]*Global // method name -> interface in scope
	importedM map[string]*Global // imported interface methods

	// per-definition state
	current   *Global
	scopes    []map[string]TargetKind
	anonCount int
}

// Resolve builds the definition table, tags every identifier occurrence
// in the given files, and orders the definitions for elaboration. Each
// file's Path is its module identity, assigned by the external loader.
func Resolve(files []*ast.File) *Resolution {
	r := &resolver{
		table:   NewTable(),
		targets: make(map[ast.Node]Target),
		deps:    make(map[core.GlobalID]map[core.GlobalID]bool),
		bag:     rerr.NewBag(),
		modules: make(map[string]bool),
	}
	for _, f := range files {
		r.modules[f.Path] = true
	}

	// Pass 1: register every definition so forward references resolve.
	for _, f := range files {
		for _, def := range f.Defs {
			r.register(f.Path, def)
		}
	}

	// Pass 2: walk bodies and signatures.
	for _, f := range files {
		r.file(f)
	}

	order := r.order()
	return &Resolution{Table: r.table, Targets: r.targets, Order: order, Errors: r.bag}
}

func (r *resolver) register(module string, def ast.Def) {
	var cat Category
	switch def.(type) {
	case *ast.FnDef:
		cat = CatFunc
	case *ast.TypeDef, *ast.ClassDef:
		cat = CatType
	case *ast.InterfaceDef:
		cat = CatInterface
	case *ast.ImplementsDef:
		cat = CatImpl
	case *ast.ConstDef:
		cat = CatConst
	default:
		return
	}
	name := ""
	if cd, ok := def.(*ast.ConstDef); ok && cd.Name == "" {
		// Anonymous consts are elaborated for their implementations;
		// give them a stable synthetic name.
		r.anonCount++
		name = fmt.Sprintf("_const%d", r.anonCount)
	}
	g, err := r.table.Add(module, cat, def, name)
	if err != nil {
		pos := def.Position()
		code := rerr.RES004
		if IsBuiltinName(def.DefName()) {
			code = rerr.RES005
		}
		r.bag.Add(rerr.New(code, err.Error(), &ast.Span{Start: pos, End: pos}).WithDef(def.DefName()))
		return
	}
	// Class methods become free-standing functions in module scope.
	// Each method depends on its class: the desugared `this` parameter
	// needs the class's record type first.
	if cls, ok := def.(*ast.ClassDef); ok {
		for _, m := range cls.Methods {
			mg, err := r.table.Add(module, CatFunc, m, "")
			if err != nil {
				pos := m.Position()
				r.bag.Add(rerr.New(rerr.RES004, err.Error(), &ast.Span{Start: pos, End: pos}).WithDef(cls.Name))
				continue
			}
			r.edge(mg.ID, g.ID)
		}
	}
}

func (r *resolver) file(f *ast.File) {
	r.module = f.Path
	r.imported = make(map[string]*Global)
	r.methods = make(map[string]*Global)
	r.importedM = make(map[string]*Global)

	for _, imp := range f.Imports {
		r.importDecl(imp)
	}

	// Interface methods declared in this module are in scope unqualified.
	for _, def := range f.Defs {
		if iface, ok := def.(*ast.InterfaceDef); ok {
			if g, ok := r.table.LookupIn(r.module, iface.Name); ok {
				for _, m := range iface.Methods {
					r.methods[m.Name] = g
				}
			}
		}
	}

	for _, def := range f.Defs {
		r.definition(def)
	}
}

func (r *resolver) importDecl(imp *ast.ImportDecl) {
	module := ModulePath(imp.Path)
	if !r.modules[module] {
		pos := imp.Position()
		r.bag.Add(rerr.New(rerr.RES001,
			fmt.Sprintf("unknown qualifier %s", module),
			&ast.Span{Start: pos, End: pos}))
		return
	}
	switch imp.Kind {
	case ast.ImportNames:
		for _, name := range imp.Names {
			g, ok := r.table.LookupIn(module, name)
			if !ok {
				pos := imp.Position()
				r.bag.Add(rerr.New(rerr.RES002,
					fmt.Sprintf("%s does not export %s", module, name),
					&ast.Span{Start: pos, End: pos}))
				continue
			}
			if prev, dup := r.imported[name]; dup && prev != g {
				pos := imp.Position()
				r.bag.Add(rerr.New(rerr.RES003,
					fmt.Sprintf("ambiguous import %s (from %s and %s)", name, prev.Module, module),
					&ast.Span{Start: pos, End: pos}))
				continue
			}
			r.imported[name] = g
			if g.Cat == CatInterface {
				r.importInterfaceMethods(g)
			}
		}
	case ast.ImportModule, ast.ImportEffects:
		// Whole-module imports bring the module's interface methods
		// into overload scope; everything else stays qualified. An
		// effects import additionally pulls the implementations in,
		// which the dispatcher sees through the shared table.
		for _, g := range r.table.All() {
			if g.Module == module && g.Cat == CatInterface {
				r.importInterfaceMethods(g)
			}
		}
	}
}

func (r *resolver) importInterfaceMethods(g *Global) {
	iface, ok := g.Def.(*ast.InterfaceDef)
	if !ok {
		return
	}
	for _, m := range iface.Methods {
		if _, exists := r.importedM[m.Name]; !exists {
			r.importedM[m.Name] = g
		}
	}
}

// ---------------------------------------------------------------------------
// Scope handling
// ---------------------------------------------------------------------------

func (r *resolver) push() {
	r.scopes = append(r.scopes, make(map[string]TargetKind))
}

func (r *resolver) pop() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) bind(name string, kind TargetKind) {
	if name == "" {
		return
	}
	r.scopes[len(r.scopes)-1][name] = kind
}

func (r *resolver) lookupScopes(name string) (TargetKind, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if kind, ok := r.scopes[i][name]; ok {
			return kind, true
		}
	}
	return TargetUnknown, false
}

// lookup follows the search order: local scope, enclosing parameters,
// current-file globals, imported names, then builtins.
// Interface methods sit in their declaring tier as overloaded names.
func (r *resolver) lookup(name string) (Target, bool) {
	if kind, ok := r.lookupScopes(name); ok {
		return Target{Kind: kind}, true
	}
	if g, ok := r.table.LookupIn(r.module, name); ok {
		return Target{Kind: TargetGlobal, Global: g}, true
	}
	if iface, ok := r.methods[name]; ok {
		return Target{Kind: TargetMethod, Global: iface, Method: name}, true
	}
	if g, ok := r.imported[name]; ok {
		return Target{Kind: TargetGlobal, Global: g}, true
	}
	if iface, ok := r.importedM[name]; ok {
		return Target{Kind: TargetMethod, Global: iface, Method: name}, true
	}
	if g, ok := r.table.Builtin(name); ok {
		return Target{Kind: TargetBuiltin, Global: g}, true
	}
	return Target{}, false
}

func (r *resolver) record(n ast.Node, t Target) {
	r.targets[n] = t
	if t.Global != nil && t.Global.Cat != CatBuiltin && r.current != nil {
		r.edge(r.current.ID, t.Global.ID)
	}
}

func (r *resolver) edge(from, to core.GlobalID) {
	edges, ok := r.deps[from]
	if !ok {
		edges = make(map[core.GlobalID]bool)
		r.deps[from] = edges
	}
	edges[to] = true
}

func (r *resolver) unknown(n ast.Node, name string) {
	pos := n.Position()
	rep := rerr.New(rerr.RES002, fmt.Sprintf("unknown name %s", name), &ast.Span{Start: pos, End: pos})
	if r.current != nil {
		rep = rep.WithDef(r.current.Name)
	}
	r.bag.Add(rep)
	r.targets[n] = Target{Kind: TargetUnknown}
}

// ---------------------------------------------------------------------------
// Definition walking
// ---------------------------------------------------------------------------

func (r *resolver) definition(def ast.Def) {
	r.current = r.findGlobal(def)

	g := r.current
	switch d := def.(type) {
	case *ast.FnDef:
		r.fnDef(d, nil)
	case *ast.TypeDef:
		r.push()
		for _, p := range d.Implicits {
			r.bind(p.Name, TargetParam)
		}
		if d.Body != nil {
			r.typ(d.Body)
		}
		r.pop()
	case *ast.ClassDef:
		r.push()
		for _, p := range d.Implicits {
			r.bind(p.Name, TargetParam)
		}
		for _, f := range d.Fields {
			if f.Type != nil {
				r.typ(f.Type)
			}
		}
		for _, m := range d.Methods {
			r.current = r.findGlobal(m)
			r.fnDef(m, d)
			r.current = g
		}
		r.pop()
	case *ast.InterfaceDef:
		r.push()
		r.bind(d.Carrier.Name, TargetParam)
		for _, p := range d.Implicits {
			r.bind(p.Name, TargetParam)
		}
		for _, m := range d.Methods {
			r.push()
			for _, p := range m.Implicits {
				r.bind(p.Name, TargetParam)
			}
			for _, p := range m.Params {
				if p.Type != nil {
					r.typ(p.Type)
				}
			}
			if m.Ret != nil {
				r.typ(m.Ret)
			}
			r.pop()
		}
		r.pop()
	case *ast.ImplementsDef:
		r.qualIdent(d.Interface)
		r.typ(d.Carrier)
		for _, m := range d.Methods {
			r.fnDef(m, nil)
		}
	case *ast.ConstDef:
		if d.Type != nil {
			r.typ(d.Type)
		}
		r.expr(d.Value)
	}
	r.current = nil
}

// findGlobal locates the table entry registered for a definition node.
func (r *resolver) findGlobal(def ast.Def) *Global {
	for _, g := range r.table.All() {
		if g.Def == def {
			return g
		}
	}
	return nil
}

// fnDef walks a function definition. cls is non-nil for class methods,
// whose bodies see `this` as a parameter after desugaring.
func (r *resolver) fnDef(d *ast.FnDef, cls *ast.ClassDef) {
	r.push()
	defer r.pop()
	for _, p := range d.Implicits {
		r.bind(p.Name, TargetParam)
	}
	if cls != nil {
		r.bind("this", TargetParam)
	}
	for _, p := range d.Params {
		if p.Type != nil {
			r.typ(p.Type)
		}
	}
	for _, p := range d.Params {
		r.bind(p.Name, TargetParam)
	}
	if d.Ret != nil {
		r.typ(d.Ret)
	}
	for _, w := range d.Where {
		r.qualIdent(w.Interface)
		for _, a := range w.Args {
			r.typ(a)
		}
	}
	if d.Body != nil {
		r.block(d.Body)
	}
}

func (r *resolver) block(b *ast.Block) {
	r.push()
	defer r.pop()
	for _, s := range b.Stmts {
		switch stmt := s.(type) {
		case *ast.Let:
			if stmt.Type != nil {
				r.typ(stmt.Type)
			}
			r.expr(stmt.Value)
			r.bind(stmt.Name, TargetLocal)
		case *ast.Return:
			if stmt.Value != nil {
				r.expr(stmt.Value)
			}
		case *ast.ExprStmt:
			r.expr(stmt.Expr)
		case *ast.BadStmt:
			pos := stmt.Position()
			rep := rerr.New(rerr.RES006,
				fmt.Sprintf("%s is not accepted by the elaborator", stmt.Form),
				&ast.Span{Start: pos, End: pos})
			if r.current != nil {
				rep = rep.WithDef(r.current.Name)
			}
			r.bag.Add(rep)
		}
	}
}

// ---------------------------------------------------------------------------
// Expression walking
// ---------------------------------------------------------------------------

func (r *resolver) expr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.Ident:
		t, ok := r.lookup(ex.Name)
		if !ok {
			r.unknown(ex, ex.Name)
			return
		}
		r.record(ex, t)
	case *ast.QualIdent:
		r.qualIdent(ex)
	case *ast.Lit, *ast.Hole:
		// nothing to resolve
	case *ast.RecordLit:
		for _, f := range ex.Fields {
			r.expr(f.Value)
		}
	case *ast.RecordConcat:
		r.expr(ex.Left)
		r.expr(ex.Right)
	case *ast.RecordCast:
		r.expr(ex.Expr)
	case *ast.Proj:
		r.expr(ex.Expr)
		// The label may be a field or a UFCS callee; record the
		// function meaning when one exists so the elaborator can fall
		// back to it. Absence is not an error here.
		if t, ok := r.lookup(ex.Label); ok {
			switch t.Kind {
			case TargetGlobal, TargetMethod, TargetBuiltin:
				r.record(ex, t)
			}
		}
	case *ast.VariantLit:
		if ex.Payload != nil {
			r.expr(ex.Payload)
		}
	case *ast.VariantCast:
		r.expr(ex.Expr)
	case *ast.Switch:
		r.expr(ex.Scrutinee)
		for _, c := range ex.Cases {
			r.push()
			if c.Binder != "" {
				r.bind(c.Binder, TargetLocal)
			}
			r.expr(c.Body)
			r.pop()
		}
	case *ast.Lambda:
		r.push()
		for _, p := range ex.Params {
			if p.Type != nil {
				r.typ(p.Type)
			}
			r.bind(p.Name, TargetParam)
		}
		r.expr(ex.Body)
		r.pop()
	case *ast.Call:
		r.expr(ex.Fn)
		for _, ta := range ex.TypeArgs {
			r.typ(ta.Type)
		}
		for _, a := range ex.Args {
			r.expr(a)
		}
	case *ast.Pipe:
		r.expr(ex.Value)
		r.expr(ex.Call)
	case *ast.New:
		r.typ(ex.Type)
		for _, a := range ex.Args {
			r.expr(a)
		}
	case *ast.If:
		r.expr(ex.Cond)
		r.expr(ex.Then)
		r.expr(ex.Else)
	case *ast.BinOp:
		r.expr(ex.Left)
		r.expr(ex.Right)
	case *ast.Block:
		r.block(ex)
	}
}

func (r *resolver) qualIdent(q *ast.QualIdent) {
	if len(q.Segments) == 0 {
		// A bare interface reference in a where clause arrives as a
		// QualIdent with no segments; resolve like an identifier.
		t, ok := r.lookup(q.Name)
		if !ok {
			r.unknown(q, q.Name)
			return
		}
		r.record(q, t)
		return
	}
	module := ModulePath(q.Segments)
	if !r.modules[module] {
		pos := q.Position()
		rep := rerr.New(rerr.RES001, fmt.Sprintf("unknown qualifier %s", module), &ast.Span{Start: pos, End: pos})
		if r.current != nil {
			rep = rep.WithDef(r.current.Name)
		}
		r.bag.Add(rep)
		r.targets[q] = Target{Kind: TargetUnknown}
		return
	}
	g, ok := r.table.LookupIn(module, q.Name)
	if !ok {
		r.unknown(q, module+"::"+q.Name)
		return
	}
	r.record(q, Target{Kind: TargetGlobal, Global: g})
}

// ---------------------------------------------------------------------------
// Type walking
// ---------------------------------------------------------------------------

func (r *resolver) typ(t ast.Type) {
	switch ty := t.(type) {
	case *ast.NamedType:
		if len(ty.Segments) > 0 {
			q := &ast.QualIdent{Segments: ty.Segments, Name: ty.Name, Pos: ty.Pos}
			r.qualIdent(q)
			r.targets[ty] = r.targets[q]
		} else {
			target, ok := r.lookup(ty.Name)
			if !ok {
				r.unknown(ty, ty.Name)
			} else {
				r.record(ty, target)
			}
		}
		for _, a := range ty.Args {
			r.typ(a)
		}
	case *ast.FuncType:
		for _, p := range ty.Params {
			if p.Type != nil {
				r.typ(p.Type)
			}
		}
		r.typ(ty.Ret)
	case *ast.RecordType:
		for _, f := range ty.Fields {
			r.typ(f.Type)
		}
		if ty.Row != "" {
			r.rowName(t, ty.Row)
		}
	case *ast.VariantType:
		for _, c := range ty.Cases {
			if c.Type != nil {
				r.typ(c.Type)
			}
		}
		if ty.Row != "" {
			r.rowName(t, ty.Row)
		}
	case *ast.RowRef:
		r.rowName(t, ty.Name)
	case *ast.HoleType:
		// becomes a fresh meta during elaboration
	}
}

// rowName checks that a row variable is bound by an enclosing implicit
// parameter. Row variables carry their quote in the binder name.
func (r *resolver) rowName(n ast.Node, name string) {
	if _, ok := r.lookupScopes("'" + name); ok {
		return
	}
	if _, ok := r.lookupScopes(name); ok {
		return
	}
	r.unknown(n, "'"+name)
}
