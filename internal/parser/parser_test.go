package parser

import (
	"errors"
	"testing"
)

func TestParseToolInvocation(t *testing.T) {
	text := "I should search for that.\n```json\n{\"action\": \"web_search\", \"action_input\": {\"query\": \"go generics\"}}\n```"
	d := Parse(text)
	if d.Invocation == nil {
		t.Fatalf("want invocation, got %+v", d)
	}
	if d.Invocation.Name != "web_search" {
		t.Errorf("Name = %q", d.Invocation.Name)
	}
	if got := d.Invocation.Arguments["query"]; got != "go generics" {
		t.Errorf("Arguments[query] = %v", got)
	}
}

func TestParseFinalAnswer(t *testing.T) {
	text := "```json\n{\"action\": \"Final Answer\", \"action_input\": \"All done.\"}\n```"
	d := Parse(text)
	if d.Answer == nil {
		t.Fatalf("want final answer, got %+v", d)
	}
	if d.Answer.Text != "All done." {
		t.Errorf("Text = %q", d.Answer.Text)
	}
}

func TestParseFinalAnswerCaseAndWhitespace(t *testing.T) {
	text := "```json\n{\"action\": \" final answer \", \"action_input\": \"done\"}\n```"
	d := Parse(text)
	if d.Answer == nil || d.Answer.Text != "done" {
		t.Errorf("got %+v, want final answer %q", d, "done")
	}
}

func TestParseScalarActionInput(t *testing.T) {
	text := "```json\n{\"action\": \"calculator\", \"action_input\": \"2+2\"}\n```"
	d := Parse(text)
	if d.Invocation == nil {
		t.Fatalf("want invocation, got %+v", d)
	}
	if got := d.Invocation.Arguments["input"]; got != "2+2" {
		t.Errorf("Arguments[input] = %v, want scalar wrapped under input", got)
	}
}

func TestParseStructuredFinalAnswer(t *testing.T) {
	text := "```json\n{\"action\": \"Final Answer\", \"action_input\": {\"items\": [1, 2]}}\n```"
	d := Parse(text)
	if d.Answer == nil {
		t.Fatalf("want final answer, got %+v", d)
	}
	if d.Answer.Text != `{"items":[1,2]}` {
		t.Errorf("Text = %q, want JSON-serialized payload", d.Answer.Text)
	}
}

func TestParseControlCharactersInsideFence(t *testing.T) {
	text := "```json\r\n{\"action\": \"lookup\",\r\n \"action_input\": {\"id\": \"a\x00b\"}}\r\n```"
	d := Parse(text)
	if d.Invocation == nil {
		t.Fatalf("want invocation, got %+v", d)
	}
	if got := d.Invocation.Arguments["id"]; got != "ab" {
		t.Errorf("Arguments[id] = %v, want control chars stripped", got)
	}
}

func TestParseBareJSONWholeText(t *testing.T) {
	// Bare JSON outside a fence is an answer payload, never an action.
	d := Parse(`{"status": "ok"}`)
	if d.Answer == nil || d.Answer.Text != `{"status":"ok"}` {
		t.Errorf("got %+v", d)
	}

	d = Parse(`"just a quoted string"`)
	if d.Answer == nil || d.Answer.Text != "just a quoted string" {
		t.Errorf("got %+v", d)
	}
}

func TestParseProseFallsThrough(t *testing.T) {
	d := Parse("The capital of France is Paris.")
	if d.Answer == nil || d.Answer.Text != "The capital of France is Paris." {
		t.Errorf("got %+v, want prose passed through", d)
	}

	// Surrounding whitespace is stripped from the answer.
	d = Parse("  The capital of France is Paris.  \n")
	if d.Answer == nil || d.Answer.Text != "The capital of France is Paris." {
		t.Errorf("got %+v, want trimmed prose", d)
	}
}

func TestParseMalformedFenceFallsThrough(t *testing.T) {
	text := "\n```json\n{not valid json}\n```  "
	d := Parse(text)
	if d.Answer == nil || d.Answer.Text != "```json\n{not valid json}\n```" {
		t.Errorf("got %+v, want trimmed whole text as answer", d)
	}
}

func TestParseFencedObjectWithoutAction(t *testing.T) {
	// A decodable block with no action key is an invocation with an
	// empty name, so the loop can report the unknown capability.
	d := Parse("```json\n{\"status\": \"ok\"}\n```")
	if d.Invocation == nil {
		t.Fatalf("got %+v, want invocation", d)
	}
	if d.Invocation.Name != "" {
		t.Errorf("Name = %q, want empty", d.Invocation.Name)
	}
}

func TestParseStrictRejectsMalformedActionText(t *testing.T) {
	_, err := ParseStrict("```json\n{\"action\": broken\n```")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Raw == "" {
		t.Error("ParseError.Raw is empty, want original text")
	}
}

func TestParseStrictAcceptsPlainProse(t *testing.T) {
	d, err := ParseStrict("  Paris is the capital of France.\n")
	if err != nil {
		t.Fatalf("ParseStrict: %v", err)
	}
	if d.Answer == nil || d.Answer.Text != "Paris is the capital of France." {
		t.Errorf("got %+v, want trimmed final answer", d)
	}
}

func TestParseStrictAcceptsValidBlock(t *testing.T) {
	d, err := ParseStrict("```json\n{\"action\": \"ping\", \"action_input\": {}}\n```")
	if err != nil {
		t.Fatalf("ParseStrict: %v", err)
	}
	if d.Invocation == nil || d.Invocation.Name != "ping" {
		t.Errorf("got %+v", d)
	}
}

func TestParseStrictMarkerDetection(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"mentions tool", "I tried to use the search Tool but failed {", true},
		{"mentions function", "calling Function lookup with bad args }", true},
		{"no markers", "Just some { broken } text", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStrict(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStrict(%q) err = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
		})
	}
}

func TestParseFirstFenceWins(t *testing.T) {
	text := "```json\n{\"action\": \"first\", \"action_input\": {}}\n```\n```json\n{\"action\": \"second\", \"action_input\": {}}\n```"
	d := Parse(text)
	if d.Invocation == nil || d.Invocation.Name != "first" {
		t.Errorf("got %+v, want first block", d)
	}
}
