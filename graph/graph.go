// Package graph resolves the manifest's dependency list into a
// cycle-free, conflict-free build order. Each dependency recurses into
// the union of its own nested manifest's native sub-dependencies (if
// it ships a flappy.toml) and its bridged ExtraDependencies, deduped
// by name (spec §4.3).
package graph

import (
	"context"
	"fmt"

	"github.com/flappy-build/flappy/internal/ferrors"
	"github.com/flappy-build/flappy/manifest"
)

// Node is one dependency after graph resolution.
type Node struct {
	Name string
	Dep  manifest.Dependency

	// Dir/Resolved are what Fetch returned for this node: its fetched
	// source directory and resolved identifier (commit SHA, URL hash,
	// or "local").
	Dir      string
	Resolved string

	// Children are this node's direct dependencies, already resolved
	// and deduplicated by the source-equality conflict check.
	Children []*Node
}

// Lookup resolves a bridged dependency name (manifest.Dependency.
// ExtraDependencies) to its manifest.Dependency. The graph itself does
// not know where bridged dependencies' declarations live; the caller
// supplies this so the same Resolve works whether the names come from
// the root manifest or from a nested dependency's own bridging list.
type Lookup func(name string) (manifest.Dependency, bool)

// Fetcher materializes a dependency's source onto local disk, exactly
// as fetch.Resolver does — Resolve calls this once per node, before
// recursing, so it can look for that node's own nested manifest.
type Fetcher interface {
	Fetch(ctx context.Context, name string, src manifest.Source) (dir, resolved string, err error)
}

// FetcherFunc adapts a plain function to a Fetcher.
type FetcherFunc func(ctx context.Context, name string, src manifest.Source) (dir, resolved string, err error)

func (f FetcherFunc) Fetch(ctx context.Context, name string, src manifest.Source) (string, string, error) {
	return f(ctx, name, src)
}

// ManifestLoader loads a dependency's own flappy.toml from its fetched
// directory. ok is false when the directory has no manifest of its
// own — a pure source/headers drop, not a nested flappy project.
type ManifestLoader func(dir string) (m *manifest.Manifest, ok bool, err error)

// Resolve builds the dependency graph starting from roots, in manifest
// order, detecting cycles and source conflicts per spec §3's
// invariants. It fetches every node (via fetcher) before recursing
// into it, so a dependency's own native sub-dependencies — discovered
// by parsing its nested manifest with loadManifest — are walked and
// checked for cycles/conflicts against the rest of the graph exactly
// like a bridged dependency is. loadManifest may be nil, in which case
// only bridging (ExtraDependencies) is followed.
//
// It returns the graph's roots and a separate build order (leaves
// first) suitable for sequential or staged-parallel building.
func Resolve(ctx context.Context, roots []manifest.Dependency, lookup Lookup, fetcher Fetcher, loadManifest ManifestLoader) (rootNodes []*Node, order []*Node, err error) {
	r := &resolver{
		ctx:          ctx,
		lookup:       lookup,
		fetcher:      fetcher,
		loadManifest: loadManifest,
		resolved:     make(map[string]*Node),
	}

	for _, dep := range roots {
		n, err := r.resolve(dep)
		if err != nil {
			return nil, nil, err
		}
		rootNodes = append(rootNodes, n)
	}

	return rootNodes, r.order, nil
}

type resolver struct {
	ctx          context.Context
	lookup       Lookup
	fetcher      Fetcher
	loadManifest ManifestLoader

	resolved map[string]*Node
	order    []*Node

	// path is the current DFS ancestor chain, used for cycle detection.
	path []string
}

func (r *resolver) resolve(dep manifest.Dependency) (*Node, error) {
	// Cycle check comes first: a name still on the current DFS path is
	// in progress, not finished, so it must not be satisfied by the
	// resolved-map fast path below.
	for _, p := range r.path {
		if p == dep.Name {
			return nil, &ferrors.CycleError{Path: append(append([]string{}, r.path...), dep.Name)}
		}
	}

	if existing, ok := r.resolved[dep.Name]; ok {
		if !existing.Dep.Source.Equal(dep.Source) {
			return nil, &ferrors.ConflictError{
				Name:   dep.Name,
				First:  existing.Dep.Source,
				Second: dep.Source,
			}
		}
		return existing, nil
	}

	dir, resolved, err := r.fetcher.Fetch(r.ctx, dep.Name, dep.Source)
	if err != nil {
		return nil, &ferrors.GraphError{Name: dep.Name, Err: err}
	}

	n := &Node{Name: dep.Name, Dep: dep, Dir: dir, Resolved: resolved}
	r.path = append(r.path, dep.Name)

	children, err := r.childDeps(dep, dir)
	if err != nil {
		r.path = r.path[:len(r.path)-1]
		return nil, err
	}

	for _, childDep := range children {
		child, err := r.resolve(childDep)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}

	r.path = r.path[:len(r.path)-1]
	r.resolved[dep.Name] = n
	r.order = append(r.order, n)
	return n, nil
}

// childDeps computes the union of dep's own nested manifest's
// dependencies (its native sub-deps) and its bridged
// ExtraDependencies resolved from the parent scope via lookup,
// deduplicated by name — native sub-deps win a name collision since
// they're what the dependency itself actually builds against.
func (r *resolver) childDeps(dep manifest.Dependency, dir string) ([]manifest.Dependency, error) {
	seen := map[string]bool{}
	var out []manifest.Dependency

	if r.loadManifest != nil {
		m, ok, err := r.loadManifest(dir)
		if err != nil {
			return nil, &ferrors.GraphError{Name: dep.Name, Err: err}
		}
		if ok {
			for _, nd := range m.Dependencies {
				if !seen[nd.Name] {
					seen[nd.Name] = true
					out = append(out, nd)
				}
			}
		}
	}

	for _, childName := range dep.ExtraDependencies {
		if seen[childName] {
			continue
		}
		childDep, ok := r.lookup(childName)
		if !ok {
			return nil, &ferrors.GraphError{Name: childName, Err: fmt.Errorf("dependency %q bridges unknown dependency %q", dep.Name, childName)}
		}
		seen[childName] = true
		out = append(out, childDep)
	}

	return out, nil
}
