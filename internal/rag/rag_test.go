package rag

import (
	"context"
	"testing"
	"unicode/utf8"
)

func TestStatic_ContextFor(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     string
	}{
		{name: "under budget", text: "short", maxChars: 100, want: "short"},
		{name: "zero budget returns all", text: "short", maxChars: 0, want: "short"},
		{name: "truncated", text: "abcdef", maxChars: 4, want: "abcd"},
		{name: "cut backs up to rune boundary", text: "aża", maxChars: 2, want: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Static(tt.text).ContextFor(context.Background(), "query", tt.maxChars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result is not valid UTF-8: %q", got)
			}
		})
	}
}
