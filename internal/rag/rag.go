// Package rag defines the semantic-search context collaborator.
package rag

import (
	"context"
	"unicode/utf8"
)

// Provider returns retrieval context for a query, truncated to maxChars.
// The real retrieval subsystem lives outside this core; tests and local
// wiring use Static.
type Provider interface {
	ContextFor(ctx context.Context, query string, maxChars int) (string, error)
}

// Static serves a fixed context string regardless of query.
type Static string

// ContextFor implements Provider.
func (s Static) ContextFor(_ context.Context, _ string, maxChars int) (string, error) {
	text := string(s)
	if maxChars > 0 && len(text) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text, nil
}
