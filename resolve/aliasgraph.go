package resolve

import (
	"fmt"
	"sort"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/token"
)

// checkAliasCycles implements step 5: build a directed graph of (type-alias
// decl) -> (type-alias decls referenced in its RHS) across the whole
// loaded set (an alias in one module may reference an alias in another)
// and reject any cycle. Newtypes and struct/union references may be
// cyclic — only TypeDef-to-TypeDef edges matter here.
//
// Grounded on the same discovery-state (unseen/in-progress/done) walk
// package loader uses for import cycles; spec §4.4 calls for the identical
// algorithm at a different granularity.
func checkAliasCycles(allDecls map[ScopedName]*Decl) error {
	names := make([]ScopedName, 0, len(allDecls))
	for n, d := range allDecls {
		if d.Kind == ast.DeclTypeDef {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	state := map[ScopedName]discoveryState{}

	for _, n := range names {
		if state[n] == done {
			continue
		}

		if err := visitAlias(n, allDecls, state, nil); err != nil {
			return err
		}
	}

	return nil
}

type discoveryState int

const (
	unseen discoveryState = iota
	inProgress
	done
)

func visitAlias(name ScopedName, allDecls map[ScopedName]*Decl, state map[ScopedName]discoveryState, stack []ScopedName) error {
	switch state[name] {
	case done:
		return nil
	case inProgress:
		cycle := append(append([]ScopedName{}, stack...), name)
		return token.NewPosError(allDecls[name], fmt.Sprintf("type alias cycle: %v", cycle)).
			WithKind(token.TypeAliasCycle)
	}

	state[name] = inProgress
	stack = append(stack, name)

	d := allDecls[name]

	for _, ref := range aliasRefs(d.TypeExpr) {
		target, ok := allDecls[ref]
		if !ok || target.Kind != ast.DeclTypeDef {
			continue
		}

		if err := visitAlias(ref, allDecls, state, stack); err != nil {
			return err
		}
	}

	state[name] = done

	return nil
}

// aliasRefs collects every RefScoped name appearing anywhere in te (head
// or parameters).
func aliasRefs(te *TypeExpr) []ScopedName {
	if te == nil {
		return nil
	}

	var out []ScopedName

	if te.Ref.Kind == RefScoped {
		out = append(out, te.Ref.Scoped)
	}

	for _, p := range te.Parameters {
		out = append(out, aliasRefs(p)...)
	}

	return out
}
