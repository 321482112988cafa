package ui

import (
	"strings"
	"testing"

	"github.com/lmikael/conntop/engine"
	"github.com/lmikael/conntop/model"
)

func TestPad(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"", 3, "   "},
		{"abc", 3, "abc"},
	}
	for _, tt := range tests {
		if got := pad(tt.in, tt.width); got != tt.want {
			t.Errorf("pad(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestRenderRowUsesColumnSubsetInOrder(t *testing.T) {
	e := model.Entry{Connection: model.Connection{
		ID:       "a",
		Metadata: model.Metadata{Host: "example.com", Network: "tcp"},
	}}
	cols := engine.ColumnsByKeys([]string{"network", "host"})

	row := renderRow(&e, cols)
	if !strings.HasPrefix(row, "tcp") {
		t.Errorf("row = %q, want network column first", row)
	}
	if !strings.Contains(row, "example.com") {
		t.Errorf("row = %q, missing host", row)
	}
}
