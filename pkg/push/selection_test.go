package push

import (
	"strings"
	"testing"

	"github.com/panshift/panshift/pkg/scm"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    Strategy
		wantErr bool
	}{
		{"skip", StrategySkip, false},
		{"overwrite", StrategyOverwrite, false},
		{"rename", StrategyRename, false},
		{"", Strategy(""), false},
		{"merge", "", true},
		{"Skip", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFlatten_ResolvesDefaults(t *testing.T) {
	sel := &Selection{
		Destination: scm.FolderLocation("Shared"),
		Folders: []FolderSelection{{
			Source: "Datacenter",
			Kinds: []KindSelection{{
				Kind: "address",
				Items: []ItemSelection{
					{Payload: scm.Payload{"name": "web-1"}},
				},
			}},
		}},
	}

	items, errs := sel.Flatten(StrategyOverwrite)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	item := items[0]
	if item.Kind != scm.KindAddress {
		t.Errorf("kind = %s", item.Kind)
	}
	if item.Name != "web-1" {
		t.Errorf("name = %s", item.Name)
	}
	if item.Source != "Datacenter" {
		t.Errorf("source = %s", item.Source)
	}
	if item.Location.Folder != "Shared" {
		t.Errorf("location = %s", item.Location)
	}
	if item.Strategy != StrategyOverwrite {
		t.Errorf("strategy = %s, want inherited default", item.Strategy)
	}
}

func TestFlatten_Overrides(t *testing.T) {
	snippet := scm.SnippetLocation("migrated", true)
	sel := &Selection{
		Destination: scm.FolderLocation("Shared"),
		Strategy:    StrategySkip,
		Folders: []FolderSelection{{
			Source: "Branch",
			Kinds: []KindSelection{{
				Kind: "service",
				Items: []ItemSelection{
					{
						Payload:     scm.Payload{"name": "tcp-8443"},
						Destination: &snippet,
						Strategy:    StrategyRename,
					},
					{Payload: scm.Payload{"name": "tcp-9000"}},
				},
			}},
		}},
	}

	items, errs := sel.Flatten(StrategyOverwrite)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	if items[0].Location.Snippet != "migrated" || !items[0].Location.NewSnippet {
		t.Errorf("item override location = %+v", items[0].Location)
	}
	if items[0].Strategy != StrategyRename {
		t.Errorf("item override strategy = %s", items[0].Strategy)
	}
	// Second item inherits the selection strategy, not the engine default.
	if items[1].Strategy != StrategySkip {
		t.Errorf("selection strategy not inherited: %s", items[1].Strategy)
	}
	if items[1].Location.Folder != "Shared" {
		t.Errorf("selection destination not inherited: %s", items[1].Location)
	}
}

func TestFlatten_UnknownKindDropsGroupWithOneError(t *testing.T) {
	sel := &Selection{
		Destination: scm.FolderLocation("Shared"),
		Folders: []FolderSelection{{
			Source: "Datacenter",
			Kinds: []KindSelection{
				{
					Kind: "vlan",
					Items: []ItemSelection{
						{Payload: scm.Payload{"name": "v100"}},
						{Payload: scm.Payload{"name": "v200"}},
					},
				},
				{
					Kind:  "address",
					Items: []ItemSelection{{Payload: scm.Payload{"name": "web-1"}}},
				},
			},
		}},
	}

	items, errs := sel.Flatten(StrategySkip)
	if len(items) != 1 || items[0].Name != "web-1" {
		t.Fatalf("valid items should survive, got %v", items)
	}
	if len(errs) != 1 {
		t.Fatalf("want exactly one error for the dropped kind group, got %v", errs)
	}
	if !strings.Contains(errs[0], "vlan") || !strings.Contains(errs[0], "2 items") {
		t.Errorf("error should name the kind and the dropped count: %s", errs[0])
	}
}

func TestFlatten_NamelessItem(t *testing.T) {
	sel := &Selection{
		Destination: scm.FolderLocation("Shared"),
		Folders: []FolderSelection{{
			Source: "Branch",
			Kinds: []KindSelection{{
				Kind: "tag",
				Items: []ItemSelection{
					{Payload: scm.Payload{"color": "red"}},
					{Payload: scm.Payload{"name": "pci"}},
				},
			}},
		}},
	}

	items, errs := sel.Flatten(StrategySkip)
	if len(items) != 1 || items[0].Name != "pci" {
		t.Fatalf("named item should survive, got %v", items)
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "no name") {
		t.Errorf("want one no-name error, got %v", errs)
	}
}

func TestFlatten_InvalidDestination(t *testing.T) {
	bad := scm.Location{Folder: "Shared", Snippet: "both"}
	sel := &Selection{
		Destination: scm.FolderLocation("Shared"),
		Folders: []FolderSelection{{
			Source: "Branch",
			Kinds: []KindSelection{{
				Kind: "address",
				Items: []ItemSelection{
					{Payload: scm.Payload{"name": "web-1"}, Destination: &bad},
				},
			}},
		}},
	}

	items, errs := sel.Flatten(StrategySkip)
	if len(items) != 0 {
		t.Errorf("invalid destination should drop the item, got %v", items)
	}
	if len(errs) != 1 {
		t.Errorf("want one error, got %v", errs)
	}
}

func TestFlatten_NoDestinationAnywhere(t *testing.T) {
	sel := &Selection{
		Folders: []FolderSelection{{
			Source: "Branch",
			Kinds: []KindSelection{{
				Kind:  "address",
				Items: []ItemSelection{{Payload: scm.Payload{"name": "web-1"}}},
			}},
		}},
	}

	items, errs := sel.Flatten(StrategySkip)
	if len(items) != 0 || len(errs) != 1 {
		t.Errorf("item without any destination should error: items=%v errs=%v", items, errs)
	}
}
