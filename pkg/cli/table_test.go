package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_EmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NAME", "STATUS")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table should print nothing, got %q", buf.String())
	}
}

func TestTable_HeadersAndDivider(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NAME", "STATUS")
	tbl.Row("fw-east-1", "success")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (header, divider, row), got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "NAME") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header line missing columns: %q", lines[0])
	}
	if !strings.Contains(lines[1], "----") {
		t.Errorf("divider line missing dashes: %q", lines[1])
	}
	if !strings.Contains(lines[2], "fw-east-1") {
		t.Errorf("row line missing value: %q", lines[2])
	}
}

func TestTable_ColumnsAligned(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NAME", "PHASE")
	tbl.Row("fw-1", "complete")
	tbl.Row("panorama-central", "committing")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	short := strings.Index(lines[2], "complete")
	long := strings.Index(lines[3], "committing")
	if short != long {
		t.Errorf("second column not aligned: %d vs %d\n%s", short, long, buf.String())
	}
}

func TestTable_Prefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "KIND", "COUNT").WithPrefix("  ")
	tbl.Row("address", "12")
	tbl.Flush()

	for i, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %d missing prefix: %q", i, line)
		}
	}
}
