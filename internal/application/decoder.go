package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AnswerContract is the structured output the model must return for each
// comparison: exactly one of the two slot labels, plus an optional
// confidence in [0,1]. Lines whose content cannot be parsed into a valid
// contract create no answer record.
type AnswerContract struct {
	// Answer is the chosen slot, "A" or "B".
	Answer string `json:"answer" validate:"required,oneof=A B"`

	// Confidence is the model's self-reported confidence, when given.
	Confidence *float64 `json:"confidence" validate:"omitempty,min=0,max=1"`
}

// errMalformedLine tags any per-line decode failure. Ingestion policy is
// skip-and-continue: one bad line never aborts the batch and no
// placeholder answer is fabricated for it.
var errMalformedLine = errors.New("malformed result line")

// Decoder parses the external service's newline-delimited output lines
// back into answer contracts.
type Decoder struct {
	validate *validator.Validate
}

// NewDecoder creates a Decoder with a fresh validator instance.
func NewDecoder() *Decoder {
	return &Decoder{validate: validator.New()}
}

// resultLine mirrors one entry of the provider's output file.
type resultLine struct {
	ID       string          `json:"id"`
	CustomID string          `json:"custom_id"`
	Error    json.RawMessage `json:"error"`
	Response *resultResponse `json:"response"`
}

type resultResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// completionBody is the subset of the nested chat completion response the
// decoder descends into to find the model's message content.
type completionBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// DecodeLine parses one raw output line and returns the unit token it
// belongs to along with the model's message content. All failures wrap
// errMalformedLine so the ingestor can skip the line and continue.
func (d *Decoder) DecodeLine(raw []byte) (token, content string, err error) {
	var line resultLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return "", "", fmt.Errorf("%w: %v", errMalformedLine, err)
	}
	if line.CustomID == "" {
		return "", "", fmt.Errorf("%w: missing custom_id", errMalformedLine)
	}
	if len(line.Error) > 0 && string(line.Error) != "null" {
		return line.CustomID, "", fmt.Errorf("%w: request-level error", errMalformedLine)
	}
	if line.Response == nil || line.Response.StatusCode != 200 {
		return line.CustomID, "", fmt.Errorf("%w: unsuccessful response", errMalformedLine)
	}

	var body completionBody
	if err := json.Unmarshal(line.Response.Body, &body); err != nil {
		return line.CustomID, "", fmt.Errorf("%w: %v", errMalformedLine, err)
	}
	if len(body.Choices) == 0 || body.Choices[0].Message.Content == "" {
		return line.CustomID, "", fmt.Errorf("%w: empty completion", errMalformedLine)
	}

	return line.CustomID, body.Choices[0].Message.Content, nil
}

// ParseContract extracts and validates the structured answer from the
// model's message content. The content may wrap the JSON in surrounding
// text or a markdown code fence.
func (d *Decoder) ParseContract(content string) (*AnswerContract, error) {
	jsonStr := extractJSON(content)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON object in content", errMalformedLine)
	}

	var contract AnswerContract
	if err := json.Unmarshal([]byte(jsonStr), &contract); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedLine, err)
	}
	if err := d.validate.Struct(&contract); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedLine, err)
	}
	return &contract, nil
}

// extractJSON pulls a JSON object out of a response that might contain
// additional text before or after it, including markdown code fences.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		rest := response[idx+7:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	// Find the matching closing brace, tracking strings and escapes.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}
