// Package parser interprets raw model output as an agent decision. The
// model is instructed to answer with a fenced JSON action block; this
// package turns that convention into typed decisions the loop can act on.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// finalAnswerAction is the sentinel action name that ends an agent run.
const finalAnswerAction = "Final Answer"

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ToolInvocation is a decision to call a named capability with arguments.
type ToolInvocation struct {
	Name      string
	Arguments map[string]any
}

// FinalAnswer is a decision to reply to the user and end the run.
type FinalAnswer struct {
	Text string
}

// Decision is the parsed meaning of one model response. Exactly one
// field is non-nil.
type Decision struct {
	Invocation *ToolInvocation
	Answer     *FinalAnswer
}

// ParseError reports that strict parsing rejected the model output.
// Raw carries the offending text for logging.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable model output: %s", e.Reason)
}

// actionMarkers are substrings that suggest the model attempted a tool
// call. Strict parsing only rejects output containing one of these;
// plain prose still passes through as a final answer.
var actionMarkers = []string{"action", "tool", "function"}

// Parse interprets model output leniently. Malformed output never fails:
// anything that does not decode as an action block becomes the final
// answer, trimmed of surrounding whitespace.
func Parse(text string) Decision {
	if d, ok := parse(text); ok {
		return d
	}
	return Decision{Answer: &FinalAnswer{Text: strings.TrimSpace(text)}}
}

// ParseStrict interprets model output, rejecting text that looks like a
// failed tool call. Output with no action markers at all is still
// accepted as a final answer, matching lenient behavior for plain prose.
func ParseStrict(text string) (Decision, error) {
	if d, ok := parse(text); ok {
		return d, nil
	}
	lower := strings.ToLower(text)
	for _, marker := range actionMarkers {
		if strings.Contains(lower, marker) {
			return Decision{}, &ParseError{Raw: text, Reason: "action block present but malformed"}
		}
	}
	return Decision{Answer: &FinalAnswer{Text: strings.TrimSpace(text)}}, nil
}

// parse attempts the structured interpretations in order: a fenced JSON
// action block first, then the whole text as a bare JSON document.
func parse(text string) (Decision, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if d, ok := decodeAction(m[1]); ok {
			return d, true
		}
	}

	// Outside a fence the whole text may still be a JSON document; treat
	// it as the answer payload rather than an action.
	trimmed := strings.TrimSpace(text)
	var whole any
	if err := json.Unmarshal([]byte(trimmed), &whole); err == nil {
		return Decision{Answer: &FinalAnswer{Text: stringify(whole)}}, true
	}

	return Decision{}, false
}

// decodeAction cleans and decodes the inside of a fenced block.
func decodeAction(block string) (Decision, bool) {
	cleaned := sanitize(block)
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return Decision{}, false
	}
	return interpretAction(obj), true
}

// interpretAction maps a decoded action object onto a decision. The
// action name is trimmed and compared case-insensitively against the
// final-answer sentinel. A missing or non-string action yields an
// invocation with an empty name; the loop surfaces it as an unknown
// capability the model can react to.
func interpretAction(obj map[string]any) Decision {
	action, _ := obj["action"].(string)
	action = strings.TrimSpace(action)

	input := obj["action_input"]

	if strings.EqualFold(action, finalAnswerAction) {
		return Decision{Answer: &FinalAnswer{Text: stringify(input)}}
	}

	args, ok := input.(map[string]any)
	if !ok {
		// Scalar inputs are wrapped so every capability sees a map.
		args = map[string]any{"input": input}
	}
	return Decision{Invocation: &ToolInvocation{Name: action, Arguments: args}}
}

// stringify renders a final-answer payload. Strings pass through as-is;
// anything else is re-serialized as JSON.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// sanitize strips non-printable runes and normalizes line endings.
// Models occasionally emit control characters inside fenced blocks that
// the strict JSON decoder rejects.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
}
