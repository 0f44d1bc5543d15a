// Package domain contains the core entities of the preference-polling
// pipeline: questions, request units, batches, and answers, together with
// the pure expansion logic that turns a question into concrete
// (context, choice-pair) comparison units.
package domain

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// Question is a parameterized A/B preference question. The template holds
// placeholders for context dimensions ({{.gender}}, {{.country}}, ...),
// the context maps each dimension to its candidate values, and the choices
// list the candidate labels compared pairwise.
type Question struct {
	// ID is the internal storage identifier.
	ID string `json:"id" bson:"_id,omitempty"`

	// UUID is the stable external identifier used by the HTTP API and
	// batch submissions.
	UUID uuid.UUID `json:"uuid" bson:"uuid"`

	// Template is the question text with {{.dimension}} placeholders.
	Template string `json:"template" bson:"template"`

	// Context maps each dimension name to its candidate values.
	// Values are normalized at the input boundary so a scalar becomes a
	// one-element list; empty lists are rejected there as well.
	Context map[string][]string `json:"context" bson:"context"`

	// Choices are the candidate labels in declared order, possibly with
	// duplicates. Pair generation deduplicates preserving first-seen order.
	Choices []string `json:"choices" bson:"choices"`

	// Archived hides the question from listings without deleting its runs.
	Archived bool `json:"archived" bson:"archived"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Assignment binds every context dimension to one concrete value.
type Assignment map[string]string

// Pair is one two-slot comparison drawn from the choice list. Slot names
// are fixed as "A" and "B" for presentation; the underlying pair is
// unordered and each unordered pair appears exactly once, in source order.
type Pair struct {
	A string `json:"A" bson:"A"`
	B string `json:"B" bson:"B"`
}

// Label resolves a slot name ("A" or "B") to its choice label.
// The second return reports whether the slot name is valid.
func (p Pair) Label(slot string) (string, bool) {
	switch slot {
	case "A":
		return p.A, true
	case "B":
		return p.B, true
	}
	return "", false
}

// ContextKeys returns the question's context dimension names in
// lexicographic order. All string encodings of an assignment use this
// canonical ordering so round trips are stable.
func (q *Question) ContextKeys() []string {
	keys := make([]string, 0, len(q.Context))
	for k := range q.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContextCombinations expands the context specification into the full
// cartesian product of concrete assignments. A question with no context
// dimensions yields exactly one empty assignment. Pure function; absent
// context is valid, so there are no error conditions.
func (q *Question) ContextCombinations() []Assignment {
	keys := q.ContextKeys()
	if len(keys) == 0 {
		return []Assignment{{}}
	}

	combos := []Assignment{{}}
	for _, key := range keys {
		values := q.Context[key]
		next := make([]Assignment, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				extended := make(Assignment, len(combo)+1)
				for ck, cv := range combo {
					extended[ck] = cv
				}
				extended[key] = v
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

// RenderedQuestion is one concrete question text with the assignment that
// produced it.
type RenderedQuestion struct {
	Text    string     `json:"text"`
	Context Assignment `json:"context"`
}

// RenderAll materializes every concrete question implied by this instance
// by rendering the template against each context combination.
// Returns an error only when the template itself does not compile or
// references something not renderable; CompileTemplate at the input
// boundary makes that unreachable for stored questions.
func (q *Question) RenderAll() ([]RenderedQuestion, error) {
	tmpl, err := CompileTemplate(q.Template)
	if err != nil {
		return nil, err
	}

	combos := q.ContextCombinations()
	rendered := make([]RenderedQuestion, 0, len(combos))
	for _, combo := range combos {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, combo); err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		rendered = append(rendered, RenderedQuestion{Text: buf.String(), Context: combo})
	}
	return rendered, nil
}

// CompileTemplate parses a question template. Missing placeholders render
// as empty rather than failing, matching the forgiving behavior operators
// expect while drafting.
func CompileTemplate(text string) (*template.Template, error) {
	tmpl, err := template.New("question").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return tmpl, nil
}

// DedupedChoices removes duplicate labels preserving first-seen order.
func (q *Question) DedupedChoices() []string {
	seen := make(map[string]struct{}, len(q.Choices))
	out := make([]string, 0, len(q.Choices))
	for _, c := range q.Choices {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ChoicePairs returns every unordered pair of distinct choice labels as
// direction-labeled {A, B} pairs, one fixed orientation per pair in source
// order. Fewer than 2 distinct labels legitimately yields zero pairs; that
// is not an error.
func (q *Question) ChoicePairs() []Pair {
	items := q.DedupedChoices()
	if len(items) < 2 {
		return nil
	}

	pairs := make([]Pair, 0, len(items)*(len(items)-1)/2)
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			pairs = append(pairs, Pair{A: items[i], B: items[j]})
		}
	}
	return pairs
}
