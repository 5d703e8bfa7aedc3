package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Phoneme", "Errors", "Sessions"}
	rows := [][]string{
		{"/s/", "12", "4"},
		{"/ʃ/", "3", "10"},
	}
	lines := formatTable(headers, rows, map[int]bool{1: true, 2: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Phoneme Errors Sessions" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "/s/         12        4" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "/ʃ/          3       10" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}
