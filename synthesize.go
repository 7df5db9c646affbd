package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Completer is the text-generation collaborator.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EventProposal is a validated, not-yet-persisted event synthesized from a
// model response.
type EventProposal struct {
	Title       string
	Type        string
	Duration    string // minutes; numeric model output is coerced to a string
	Description string
	Datetime    string
	Agenda      []AgendaItem
}

// SynthesisCause classifies why a synthesis attempt failed.
type SynthesisCause int

const (
	CauseServiceError SynthesisCause = iota
	CauseMalformedJSON
	CauseIncompleteProposal
)

func (c SynthesisCause) String() string {
	switch c {
	case CauseServiceError:
		return "service error"
	case CauseMalformedJSON:
		return "malformed JSON"
	case CauseIncompleteProposal:
		return "incomplete proposal"
	default:
		return "unknown"
	}
}

// SynthesisError reports an unusable completion. Detail carries the parser
// or validation message; err, when set, is the underlying service error.
type SynthesisError struct {
	Cause  SynthesisCause
	Detail string
	err    error
}

func (e *SynthesisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("synthesize proposal: %s: %s", e.Cause, e.Detail)
	}
	if e.err != nil {
		return fmt.Sprintf("synthesize proposal: %s: %v", e.Cause, e.err)
	}
	return fmt.Sprintf("synthesize proposal: %s", e.Cause)
}

func (e *SynthesisError) Unwrap() error { return e.err }

// Synthesizer turns user preferences into a typed event proposal by
// prompting the completion service and parsing its reply.
type Synthesizer struct {
	completer Completer
}

func NewSynthesizer(completer Completer) *Synthesizer {
	return &Synthesizer{completer: completer}
}

// Synthesize asks the model for an event suggestion matching prefs (nil means
// no saved preferences) and parses the reply. It never fabricates fields: any
// gap in the model output is an error, not a default.
func (s *Synthesizer) Synthesize(ctx context.Context, prefs *Preferences) (*EventProposal, error) {
	raw, err := s.completer.Complete(ctx, buildProposalPrompt(prefs))
	if err != nil {
		return nil, &SynthesisError{Cause: CauseServiceError, err: err}
	}
	return parseProposal(raw)
}

func buildProposalPrompt(prefs *Preferences) string {
	interests := "Any"
	timezone := defaultTimezone
	times := "Any"
	if prefs != nil {
		if len(prefs.Interests) > 0 {
			interests = strings.Join(prefs.Interests, ", ")
		}
		if prefs.Timezone != "" {
			timezone = prefs.Timezone
		}
		if len(prefs.PreferredTimes) > 0 {
			times = strings.Join(prefs.PreferredTimes, ", ")
		}
	}

	return fmt.Sprintf(`Please generate a virtual event suggestion that matches these specific preferences:

User Preferences:
- Interests: %[1]s
- Timezone: %[2]s
- Preferred Times: %[3]s

Requirements:
1. The event type should match one of the user's interests
2. The event time should be in %[2]s timezone
3. The event should be scheduled during user's preferred times: %[3]s
4. Include detailed agenda with specific times

Return ONLY a JSON object in this format:
{
    "title": "Event title that matches interests",
    "type": "Event type (should match interests)",
    "duration": "Duration in minutes",
    "description": "Detailed description focusing on user interests",
    "datetime": "YYYY-MM-DD HH:MM in %[2]s",
    "agenda": [
        {"time": "Start-End", "item": "Agenda item description"},
        {"time": "Start-End", "item": "Agenda item description"},
        {"time": "Start-End", "item": "Agenda item description"}
    ]
}

Example (DO NOT USE DIRECTLY):
{
    "title": "Tech Innovation Workshop: AI Applications",
    "type": "Technology",
    "duration": "120",
    "description": "An interactive workshop focusing on practical AI applications",
    "datetime": "2024-04-01 14:00",
    "agenda": [
        {"time": "14:00-14:15", "item": "Welcome and Introduction"},
        {"time": "14:15-15:00", "item": "Main Topic Discussion"},
        {"time": "15:00-15:15", "item": "Break"},
        {"time": "15:15-15:45", "item": "Hands-on Session"},
        {"time": "15:45-16:00", "item": "Q&A and Closing"}
    ]
}`, interests, timezone, times)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// parseProposal decodes a model reply into a proposal. Parsing is two-stage:
// a strict pass over the fence-stripped text, then one retry with whitespace
// runs collapsed and braces added when missing. There is no further repair.
func parseProposal(raw string) (*EventProposal, error) {
	text := stripFences(strings.TrimSpace(raw))

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
		if !strings.HasPrefix(normalized, "{") {
			normalized = "{" + normalized
		}
		if !strings.HasSuffix(normalized, "}") {
			normalized = normalized + "}"
		}
		if retryErr := json.Unmarshal([]byte(normalized), &fields); retryErr != nil {
			return nil, &SynthesisError{Cause: CauseMalformedJSON, Detail: retryErr.Error()}
		}
	}

	for _, name := range []string{"title", "type", "duration", "description", "datetime", "agenda"} {
		if _, ok := fields[name]; !ok {
			return nil, &SynthesisError{Cause: CauseIncompleteProposal, Detail: "missing field " + name}
		}
	}

	p := &EventProposal{}
	for name, dst := range map[string]*string{
		"title":       &p.Title,
		"type":        &p.Type,
		"description": &p.Description,
		"datetime":    &p.Datetime,
	} {
		if err := json.Unmarshal(fields[name], dst); err != nil {
			return nil, &SynthesisError{Cause: CauseMalformedJSON, Detail: name + ": " + err.Error()}
		}
	}

	duration, err := decodeDuration(fields["duration"])
	if err != nil {
		return nil, err
	}
	p.Duration = duration

	if err := json.Unmarshal(fields["agenda"], &p.Agenda); err != nil {
		return nil, &SynthesisError{Cause: CauseIncompleteProposal, Detail: "agenda must be a list of {time, item} objects"}
	}

	return p, nil
}

// decodeDuration accepts either a JSON string or a number; numbers are
// coerced to their decimal string form.
func decodeDuration(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", &SynthesisError{Cause: CauseMalformedJSON, Detail: "duration must be a string or number"}
}

// stripFences removes a leading ```json fence and a trailing ``` fence.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}
	return strings.TrimSpace(text)
}
