package scm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panshift/panshift/pkg/util"
)

// Inventory is an in-memory Client. Plan runs push against an empty (or
// seeded) Inventory to preview actions; tests use it as the tenant double.
// Safe for concurrent use.
type Inventory struct {
	mu       sync.Mutex
	objects  map[string]Payload
	snippets map[string]bool
}

// NewInventory returns an empty in-memory tenant.
func NewInventory() *Inventory {
	return &Inventory{
		objects:  make(map[string]Payload),
		snippets: make(map[string]bool),
	}
}

func objectKey(kind ItemKind, loc Location, name string) string {
	return string(kind) + "|" + loc.Key() + "|" + name
}

// Seed registers an object as pre-existing without payload, simulating
// tenant state for conflict previews.
func (inv *Inventory) Seed(kind ItemKind, loc Location, name string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.objects[objectKey(kind, loc, name)] = Payload{"name": name}
}

// SeedSnippet registers a snippet as pre-existing.
func (inv *Inventory) SeedSnippet(name string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.snippets[name] = true
}

// CreateObject stores the payload, failing when the name is already taken
// in that container.
func (inv *Inventory) CreateObject(ctx context.Context, kind ItemKind, loc Location, payload Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := payload.Name()
	if name == "" {
		return fmt.Errorf("scm: %s payload has no name", kind)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	key := objectKey(kind, loc, name)
	if _, taken := inv.objects[key]; taken {
		return fmt.Errorf("scm: %s %q in %s: %w", kind, name, loc, util.ErrAlreadyExists)
	}
	inv.objects[key] = payload.Clone()
	return nil
}

// ObjectExists reports whether the name is taken in that container.
func (inv *Inventory) ObjectExists(ctx context.Context, kind ItemKind, loc Location, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	_, ok := inv.objects[objectKey(kind, loc, name)]
	return ok, nil
}

// DeleteObject removes an object, failing when it does not exist.
func (inv *Inventory) DeleteObject(ctx context.Context, kind ItemKind, loc Location, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	key := objectKey(kind, loc, name)
	if _, ok := inv.objects[key]; !ok {
		return fmt.Errorf("scm: %s %q in %s: %w", kind, name, loc, util.ErrNotFound)
	}
	delete(inv.objects, key)
	return nil
}

// CreateSnippet registers a snippet container.
func (inv *Inventory) CreateSnippet(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.snippets[name] {
		return fmt.Errorf("scm: snippet %q: %w", name, util.ErrAlreadyExists)
	}
	inv.snippets[name] = true
	return nil
}

// SnippetExists reports whether a snippet container exists.
func (inv *Inventory) SnippetExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.snippets[name], nil
}

// Has reports whether an object landed, for assertions and plan output.
func (inv *Inventory) Has(kind ItemKind, loc Location, name string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	_, ok := inv.objects[objectKey(kind, loc, name)]
	return ok
}

// HasSnippet reports whether a snippet container landed.
func (inv *Inventory) HasSnippet(name string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.snippets[name]
}

// Get returns a stored payload copy.
func (inv *Inventory) Get(kind ItemKind, loc Location, name string) (Payload, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.objects[objectKey(kind, loc, name)]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// ObjectCount returns the number of stored objects.
func (inv *Inventory) ObjectCount() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.objects)
}

// Keys returns sorted object keys, for deterministic listings.
func (inv *Inventory) Keys() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	keys := make([]string, 0, len(inv.objects))
	for k := range inv.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
