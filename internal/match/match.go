// Package match decides whether extracted text mentions a registered user.
//
// Matching is raw substring containment, case-sensitive as extracted, not a
// tokenized word match. The scan is first-match-wins in registry order: the
// result is deterministic for a fixed user ordering, so callers must supply
// users in a stable order (the registry returns creation order).
package match

import (
	"strings"

	"driveocr/internal/registry"
)

// Result is the decision for one piece of extracted text.
type Result struct {
	Matched      bool           `json:"matched"`
	User         *registry.User `json:"user,omitempty"`
	MatchedNames []string       `json:"matched_names"`
}

// NoMatch is the result for text that mentions no registered user.
func NoMatch() Result {
	return Result{MatchedNames: []string{}}
}

// Engine scans extracted text against the user registry.
type Engine struct{}

// NewEngine creates a match engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Match scans users in order and returns the first hit.
//
// For each user, a primary-name hit wins immediately with matched_names
// containing only the primary name, even when alternates are also present in
// the text. Otherwise every alternate hit for that user is accumulated before
// the user is declared a match. Soft-deleted users are never candidates.
func (e *Engine) Match(text string, users []registry.User) Result {
	if text == "" {
		return NoMatch()
	}

	for i := range users {
		u := &users[i]
		if u.IsDeleted {
			continue
		}

		if u.Name != "" && strings.Contains(text, u.Name) {
			return Result{
				Matched:      true,
				User:         u,
				MatchedNames: []string{u.Name},
			}
		}

		var hits []string
		for _, alt := range u.AlternateNames {
			if alt != "" && strings.Contains(text, alt) {
				hits = append(hits, alt)
			}
		}
		if len(hits) > 0 {
			return Result{
				Matched:      true,
				User:         u,
				MatchedNames: hits,
			}
		}
	}

	return NoMatch()
}
