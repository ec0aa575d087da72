// Package push implements the configuration push engine: it flattens a
// selection of tenant objects, orders them so dependencies land first,
// pre-creates new snippet containers, and pushes every item through an
// scm.Client with per-item conflict handling.
package push

import (
	"fmt"

	"github.com/panshift/panshift/pkg/scm"
)

// Strategy picks the behavior when a pushed name already exists at the
// destination.
type Strategy string

const (
	// StrategySkip leaves the existing object untouched.
	StrategySkip Strategy = "skip"
	// StrategyOverwrite deletes the existing object and recreates it.
	StrategyOverwrite Strategy = "overwrite"
	// StrategyRename pushes under a suffixed name and repairs references
	// in later items of the same run.
	StrategyRename Strategy = "rename"
)

// ParseStrategy validates a strategy string. Empty is allowed and means
// "inherit".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySkip, StrategyOverwrite, StrategyRename, "":
		return Strategy(s), nil
	}
	return "", fmt.Errorf("push: unknown conflict strategy %q (want skip, overwrite, or rename)", s)
}

// Selection is the tree of chosen objects handed over by the caller:
// per source folder, per kind, the item payloads, with optional per-item
// destination and strategy overrides.
type Selection struct {
	// Destination is the default target container for items without an
	// override.
	Destination scm.Location
	// Strategy is the selection-wide conflict strategy. Empty inherits
	// the engine default.
	Strategy Strategy
	Folders  []FolderSelection
}

// FolderSelection holds the chosen items of one source folder.
type FolderSelection struct {
	// Source names the folder the items were exported from. Informational;
	// it does not affect the destination.
	Source string
	Kinds  []KindSelection
}

// KindSelection holds the chosen items of one kind within a folder.
type KindSelection struct {
	// Kind is validated against the closed scm kind set during Flatten.
	Kind  string
	Items []ItemSelection
}

// ItemSelection is one chosen object.
type ItemSelection struct {
	Payload     scm.Payload
	Destination *scm.Location
	Strategy    Strategy
}

// Item is one flattened unit of work.
type Item struct {
	Kind     scm.ItemKind
	Name     string
	Source   string
	Location scm.Location
	Strategy Strategy
	Payload  scm.Payload
}

// Flatten resolves the tree into push items. Malformed entries degrade to
// error strings instead of aborting: an unknown kind drops that kind group
// with one error, a nameless or destination-less item drops that item with
// one error.
func (s *Selection) Flatten(defaultStrategy Strategy) ([]Item, []string) {
	var items []Item
	var errs []string

	for _, folder := range s.Folders {
		for _, ks := range folder.Kinds {
			kind, err := scm.ParseItemKind(ks.Kind)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: dropped %d items: %v", folder.Source, len(ks.Items), err))
				continue
			}
			for _, is := range ks.Items {
				name := is.Payload.Name()
				if name == "" {
					errs = append(errs, fmt.Sprintf("%s: %s item has no name", folder.Source, kind))
					continue
				}

				loc := s.Destination
				if is.Destination != nil {
					loc = *is.Destination
				}
				if err := loc.Valid(); err != nil {
					errs = append(errs, fmt.Sprintf("%s: %s %q: %v", folder.Source, kind, name, err))
					continue
				}

				strategy := is.Strategy
				if strategy == "" {
					strategy = s.Strategy
				}
				if strategy == "" {
					strategy = defaultStrategy
				}
				if strategy == "" {
					strategy = StrategySkip
				}

				items = append(items, Item{
					Kind:     kind,
					Name:     name,
					Source:   folder.Source,
					Location: loc,
					Strategy: strategy,
					Payload:  is.Payload,
				})
			}
		}
	}
	return items, errs
}
