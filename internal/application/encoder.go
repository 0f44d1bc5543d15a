// Package application wires the pipeline together: request encoding,
// batch submission, result ingestion, and the analytics queries. Every
// component receives its collaborators injected through the interfaces in
// internal/ports.
package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prefpoll/prefpoll/internal/domain"
)

const (
	// DefaultMaxBatchLines caps how many request lines go into a single
	// batch chunk. Chunk boundaries never split a line.
	DefaultMaxBatchLines = 50_000

	// DefaultMaxAnswerTokens bounds the model's reply; the structured
	// answer contract needs very little room.
	DefaultMaxAnswerTokens = 128

	chatCompletionsURL = "/v1/chat/completions"
)

// EncodedUnit pairs one (context, pair) snapshot with its serialized
// batch request line.
type EncodedUnit struct {
	Unit domain.RequestUnit
	Line []byte
}

// Encoder turns a question into the full set of serialized batch request
// lines, one per (context assignment, choice pair) combination.
type Encoder struct {
	model     string
	maxTokens int
}

// NewEncoder creates an Encoder that targets the given completion model.
func NewEncoder(model string) *Encoder {
	return &Encoder{model: model, maxTokens: DefaultMaxAnswerTokens}
}

// batchLine is one JSONL entry of a batch input file.
type batchLine struct {
	CustomID string   `json:"custom_id"`
	Method   string   `json:"method"`
	URL      string   `json:"url"`
	Body     chatBody `json:"body"`
}

type chatBody struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// Units expands the question and serializes one request line per unit.
// Each unit receives a fresh opaque token used as the line's custom_id;
// the caller persists the units so ingestion can resolve tokens back to
// their snapshotted context and pair. A question that yields no
// comparisons (under two distinct choices) returns an empty slice.
func (e *Encoder) Units(q *domain.Question) ([]EncodedUnit, error) {
	rendered, err := q.RenderAll()
	if err != nil {
		return nil, err
	}
	pairs := q.ChoicePairs()
	if len(pairs) == 0 {
		return nil, nil
	}

	now := time.Now()
	units := make([]EncodedUnit, 0, len(rendered)*len(pairs))
	for _, r := range rendered {
		for _, pair := range pairs {
			unit := domain.RequestUnit{
				Token:        domain.NewUnitToken(),
				QuestionUUID: q.UUID,
				Context:      r.Context,
				Pair:         pair,
				CreatedAt:    now,
			}

			line, err := json.Marshal(batchLine{
				CustomID: unit.Token,
				Method:   "POST",
				URL:      chatCompletionsURL,
				Body: chatBody{
					Model:          e.model,
					Messages:       []chatMessage{{Role: "user", Content: BuildPrompt(r.Text, r.Context, pair)}},
					Temperature:    0,
					MaxTokens:      e.maxTokens,
					ResponseFormat: &responseFormat{Type: "json_object"},
				},
			})
			if err != nil {
				return nil, fmt.Errorf("marshal request line: %w", err)
			}

			units = append(units, EncodedUnit{Unit: unit, Line: line})
		}
	}
	return units, nil
}

// BuildPrompt renders the natural-language prompt for one comparison:
// a persona preamble when the context is non-empty, the concrete question
// text, both candidate labels, and the structured answer contract.
func BuildPrompt(questionText string, ctx domain.Assignment, pair domain.Pair) string {
	var b strings.Builder

	if len(ctx) > 0 {
		keys := make([]string, 0, len(ctx))
		for k := range ctx {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("You are answering as the following persona: ")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(ctx[k])
		}
		b.WriteString(".\n\n")
	}

	b.WriteString(questionText)
	b.WriteString("\n\nOption A: ")
	b.WriteString(pair.A)
	b.WriteString("\nOption B: ")
	b.WriteString(pair.B)
	b.WriteString("\n\nIMPORTANT: You must respond with valid JSON in exactly this format:\n")
	b.WriteString(`{"answer": "<A or B>", "confidence": <0.0-1.0>}`)
	return b.String()
}

// ChunkPayloads groups serialized lines into newline-delimited payloads of
// at most maxLines lines each, preserving order. Each payload becomes one
// external submission unit.
func ChunkPayloads(units []EncodedUnit, maxLines int) [][]byte {
	if maxLines <= 0 {
		maxLines = DefaultMaxBatchLines
	}

	var payloads [][]byte
	for start := 0; start < len(units); start += maxLines {
		end := start + maxLines
		if end > len(units) {
			end = len(units)
		}

		var buf bytes.Buffer
		for _, u := range units[start:end] {
			buf.Write(u.Line)
			buf.WriteByte('\n')
		}
		payloads = append(payloads, buf.Bytes())
	}
	return payloads
}
