package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParseError indicates the provider output could not be recovered into a
// gradeable feedback payload by any parsing stage.
type ParseError struct {
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable feedback response: %s", e.Reason)
}

// feedbackPayload is the wire shape the provider is asked to return.
type feedbackPayload struct {
	Strengths      []string           `json:"strengths"`
	Improvements   []string           `json:"improvements"`
	Suggestions    []string           `json:"suggestions"`
	Summary        string             `json:"summary"`
	Score          *float64           `json:"score"`
	CriteriaScores []criterionPayload `json:"criteriaScores"`
}

type criterionPayload struct {
	CriteriaID string  `json:"criteriaId"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
}

// gradeable reports whether the payload carries enough substance to count as
// a successful parse. A response with neither strengths nor improvements is
// considered ungradeable.
func (p feedbackPayload) gradeable() bool {
	return len(p.Strengths) > 0 || len(p.Improvements) > 0
}

// normalize trims list entries and discards scores outside [0, 100]. An
// out-of-range score is dropped entirely rather than clamped; clamping would
// fabricate a confident-looking value the model never produced.
func (p *feedbackPayload) normalize() {
	p.Strengths = cleanList(p.Strengths)
	p.Improvements = cleanList(p.Improvements)
	p.Suggestions = cleanList(p.Suggestions)
	p.Summary = strings.TrimSpace(p.Summary)

	if p.Score != nil && (*p.Score < 0 || *p.Score > 100) {
		p.Score = nil
	}
}

func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

const feedbackSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"strengths":    {"type": "array", "items": {"type": "string"}},
		"improvements": {"type": "array", "items": {"type": "string"}},
		"suggestions":  {"type": "array", "items": {"type": "string"}},
		"summary":      {"type": "string"},
		"score":        {"type": "number"},
		"criteriaScores": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"criteriaId": {"type": "string"},
					"score":      {"type": "number"},
					"feedback":   {"type": "string"}
				},
				"required": ["criteriaId"]
			}
		}
	},
	"required": ["strengths", "improvements"]
}`

var feedbackSchema = jsonschema.MustCompileString("feedback.schema.json", feedbackSchemaJSON)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")
	trailingCommas     = regexp.MustCompile(`,\s*([}\]])`)
	duplicateCommas    = regexp.MustCompile(`,\s*,+`)
	pythonTrue         = regexp.MustCompile(`([:\[,]\s*)True\b`)
	pythonFalse        = regexp.MustCompile(`([:\[,]\s*)False\b`)
	pythonNone         = regexp.MustCompile(`([:\[,]\s*)None\b`)
	sectionHeader      = regexp.MustCompile(`(?i)^\s*(?:#+\s*|\*\*\s*)?(strengths|improvements|suggestions|summary|score)\b\s*[:*]*\s*(.*)$`)
	bulletLine         = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	scoreValue         = regexp.MustCompile(`(-?\d+(?:\.\d+)?)`)
)

// parseFeedback recovers a structured payload from unreliable provider text
// through a strictly ordered fallback chain. Each stage runs only when the
// previous one failed to produce a gradeable payload.
func parseFeedback(raw string) (feedbackPayload, error) {
	stages := []func(string) (feedbackPayload, bool){
		parseSchemaValidated,
		parseDirectJSON,
		parseFencedBlock,
		parseBraceSpan,
		parseHeuristic,
	}

	for _, stage := range stages {
		payload, ok := stage(raw)
		if !ok {
			continue
		}
		payload.normalize()
		if payload.gradeable() {
			return payload, nil
		}
	}

	return feedbackPayload{}, &ParseError{Reason: "no strengths or improvements recoverable from response"}
}

// parseSchemaValidated accepts responses that are already structured against
// the declared feedback schema, the fast path when the provider honoured the
// requested JSON response format.
func parseSchemaValidated(raw string) (feedbackPayload, bool) {
	var document any
	if err := json.Unmarshal([]byte(raw), &document); err != nil {
		return feedbackPayload{}, false
	}
	if err := feedbackSchema.Validate(document); err != nil {
		return feedbackPayload{}, false
	}

	var payload feedbackPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return feedbackPayload{}, false
	}
	return payload, true
}

func parseDirectJSON(raw string) (feedbackPayload, bool) {
	return decodeObject([]byte(strings.TrimSpace(raw)))
}

func parseFencedBlock(raw string) (feedbackPayload, bool) {
	match := fencedBlockPattern.FindStringSubmatch(raw)
	if match == nil {
		return feedbackPayload{}, false
	}
	return decodeObject([]byte(strings.TrimSpace(match[1])))
}

// parseBraceSpan cuts the first '{' to the last '}' and repairs common
// malformations before decoding: trailing commas, duplicated commas, and
// Python-style literals.
func parseBraceSpan(raw string) (feedbackPayload, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return feedbackPayload{}, false
	}

	span := raw[start : end+1]
	span = pythonTrue.ReplaceAllString(span, "${1}true")
	span = pythonFalse.ReplaceAllString(span, "${1}false")
	span = pythonNone.ReplaceAllString(span, "${1}null")
	span = duplicateCommas.ReplaceAllString(span, ",")
	span = trailingCommas.ReplaceAllString(span, "$1")

	return decodeObject([]byte(span))
}

// decodeObject pulls fields out of a JSON object one at a time so a single
// malformed field never discards the rest of the payload.
func decodeObject(data []byte) (feedbackPayload, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return feedbackPayload{}, false
	}

	payload := feedbackPayload{}
	payload.Strengths = decodeStringList(fields["strengths"])
	payload.Improvements = decodeStringList(fields["improvements"])
	payload.Suggestions = decodeStringList(fields["suggestions"])

	if raw, ok := fields["summary"]; ok {
		var summary string
		if err := json.Unmarshal(raw, &summary); err == nil {
			payload.Summary = summary
		}
	}

	if raw, ok := fields["score"]; ok {
		payload.Score = decodeScore(raw)
	}

	if raw, ok := fields["criteriaScores"]; ok {
		var scores []criterionPayload
		if err := json.Unmarshal(raw, &scores); err == nil {
			payload.CriteriaScores = scores
		}
	}

	return payload, true
}

func decodeStringList(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	// A single string where a list was expected still carries signal.
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{single}
	}

	return nil
}

func decodeScore(raw json.RawMessage) *float64 {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return &number
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return &parsed
		}
	}

	return nil
}

// parseHeuristic is the last resort: scan for section headers and bullet
// lines, building the payload field by field. Fields it cannot ascertain
// stay absent; nothing is fabricated.
func parseHeuristic(raw string) (feedbackPayload, bool) {
	payload := feedbackPayload{}
	current := ""
	summaryLines := []string{}
	matchedAnything := false

	for _, line := range strings.Split(raw, "\n") {
		if match := sectionHeader.FindStringSubmatch(line); match != nil {
			current = strings.ToLower(match[1])
			matchedAnything = true
			rest := strings.TrimSpace(match[2])

			switch current {
			case "score":
				if value := scoreValue.FindString(rest); value != "" {
					if parsed, err := strconv.ParseFloat(value, 64); err == nil {
						payload.Score = &parsed
					}
				}
			case "summary":
				if rest != "" {
					summaryLines = append(summaryLines, rest)
				}
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if bullet := bulletLine.FindStringSubmatch(line); bullet != nil {
			item := strings.TrimSpace(bullet[1])
			switch current {
			case "strengths":
				payload.Strengths = append(payload.Strengths, item)
			case "improvements":
				payload.Improvements = append(payload.Improvements, item)
			case "suggestions":
				payload.Suggestions = append(payload.Suggestions, item)
			}
			continue
		}

		if current == "summary" {
			summaryLines = append(summaryLines, trimmed)
		}
	}

	if len(summaryLines) > 0 {
		payload.Summary = strings.Join(summaryLines, " ")
	}

	return payload, matchedAnything
}
