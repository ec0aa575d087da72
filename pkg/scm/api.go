package scm

import (
	"context"
	"fmt"
)

// Location is the destination container for a pushed object: exactly one of
// Folder or Snippet. NewSnippet marks snippets that do not exist on the
// tenant yet and must be created before any item lands in them.
type Location struct {
	Folder     string `json:"folder,omitempty" yaml:"folder,omitempty"`
	Snippet    string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	NewSnippet bool   `json:"new_snippet,omitempty" yaml:"new_snippet,omitempty"`
}

// FolderLocation returns a folder destination.
func FolderLocation(name string) Location {
	return Location{Folder: name}
}

// SnippetLocation returns a snippet destination. isNew marks snippets the
// push must create first.
func SnippetLocation(name string, isNew bool) Location {
	return Location{Snippet: name, NewSnippet: isNew}
}

// IsZero reports an empty destination.
func (l Location) IsZero() bool {
	return l.Folder == "" && l.Snippet == ""
}

// Valid checks that exactly one container is set.
func (l Location) Valid() error {
	if l.Folder != "" && l.Snippet != "" {
		return fmt.Errorf("scm: location has both folder %q and snippet %q", l.Folder, l.Snippet)
	}
	if l.IsZero() {
		return fmt.Errorf("scm: location has neither folder nor snippet")
	}
	if l.NewSnippet && l.Snippet == "" {
		return fmt.Errorf("scm: new_snippet set without a snippet name")
	}
	return nil
}

// Key returns a stable map key for the container.
func (l Location) Key() string {
	if l.Snippet != "" {
		return "snippet/" + l.Snippet
	}
	return "folder/" + l.Folder
}

func (l Location) String() string {
	if l.Snippet != "" {
		if l.NewSnippet {
			return "snippet:" + l.Snippet + " (new)"
		}
		return "snippet:" + l.Snippet
	}
	return "folder:" + l.Folder
}

// Client is the tenant API surface the push engine drives. Implementations
// wrap the vendor REST API; Inventory implements it in memory for plan runs
// and tests.
type Client interface {
	CreateObject(ctx context.Context, kind ItemKind, loc Location, payload Payload) error
	ObjectExists(ctx context.Context, kind ItemKind, loc Location, name string) (bool, error)
	DeleteObject(ctx context.Context, kind ItemKind, loc Location, name string) error
	CreateSnippet(ctx context.Context, name string) error
	SnippetExists(ctx context.Context, name string) (bool, error)
}
