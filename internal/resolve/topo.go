package resolve

import (
	"fmt"
	"strings"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
)

// order linearises the definitions along reference edges, dependencies
// first. Postulates carry no body edges, so they are how the surface
// breaks cycles. Members of an unbreakable cycle are reported with
// DEP001 and left out of the order; everything else still elaborates.
func (r *resolver) order() []*Global {
	var sorted []*Global
	visited := make(map[core.GlobalID]bool)
	inPath := make(map[core.GlobalID]bool)
	var path []core.GlobalID
	failed := make(map[core.GlobalID]bool)

	var dfs func(id core.GlobalID) bool
	dfs = func(id core.GlobalID) bool {
		if visited[id] || failed[id] {
			return !failed[id]
		}
		if inPath[id] {
			r.reportCycle(id, path, failed)
			return false
		}
		inPath[id] = true
		path = append(path, id)

		ok := true
		for _, dep := range r.sortedDeps(id) {
			if !dfs(dep) {
				ok = false
			}
		}

		inPath[id] = false
		path = path[:len(path)-1]
		if !ok {
			failed[id] = true
			return false
		}
		visited[id] = true
		sorted = append(sorted, r.table.Get(id))
		return true
	}

	for _, g := range r.table.All() {
		if g.Cat == CatBuiltin {
			continue
		}
		dfs(g.ID)
	}
	return sorted
}

// sortedDeps returns the dependency IDs in ascending order so the walk,
// and therefore every report, is deterministic.
func (r *resolver) sortedDeps(id core.GlobalID) []core.GlobalID {
	edges := r.deps[id]
	if len(edges) == 0 {
		return nil
	}
	out := make([]core.GlobalID, 0, len(edges))
	for dep := range edges {
		out = append(out, dep)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (r *resolver) reportCycle(start core.GlobalID, path []core.GlobalID, failed map[core.GlobalID]bool) {
	var names []string
	collecting := false
	for _, id := range path {
		if id == start {
			collecting = true
		}
		if collecting {
			failed[id] = true
			names = append(names, r.table.Get(id).QualName())
		}
	}
	names = append(names, r.table.Get(start).QualName())
	var span *ast.Span
	if def := r.table.Get(start).Def; def != nil {
		pos := def.Position()
		span = &ast.Span{Start: pos, End: pos}
	}
	r.bag.Add(rerr.New(rerr.DEP001,
		fmt.Sprintf("definition cycle: %s", strings.Join(names, " -> ")),
		span).WithDef(r.table.Get(start).Name))
}
