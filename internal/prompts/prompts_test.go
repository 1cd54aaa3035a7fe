package prompts

import (
	"strings"
	"testing"

	"github.com/lunahq/luna/internal/tools"
)

func TestSystemWithoutTools(t *testing.T) {
	got := System("", nil)
	if got != BasePrompt {
		t.Errorf("System = %q, want base prompt only", got)
	}
	if strings.Contains(got, "Available Tools") {
		t.Error("tool catalogue present with no tools")
	}
}

func TestSystemCustomBase(t *testing.T) {
	got := System("You are a terse assistant.", nil)
	if got != "You are a terse assistant." {
		t.Errorf("System = %q", got)
	}
}

func TestSystemWithTools(t *testing.T) {
	toolList := []*tools.Tool{
		{
			Name:        "web_search",
			Description: "Search the web.",
			Prompt:      "Prefer recent sources.",
			Params: tools.Schema{
				"query": {Type: tools.TypeString, Description: "search text", Required: true},
				"limit": {Type: tools.TypeInteger},
			},
		},
		{Name: "ping", Description: "Check connectivity."},
	}

	got := System("", toolList)

	for _, want := range []string{
		"Available Tools:",
		"- web_search: Search the web.",
		"Tool-specific instructions:\nPrefer recent sources.",
		"- query (string): search text",
		"- limit (integer)",
		"- ping: Check connectivity.",
		`"action": "Final Answer"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("System missing %q", want)
		}
	}
}

func TestToolCatalogueParameterOrderStable(t *testing.T) {
	toolList := []*tools.Tool{
		{
			Name:        "x",
			Description: "d",
			Params: tools.Schema{
				"zeta":  {Type: tools.TypeString},
				"alpha": {Type: tools.TypeString},
			},
		},
	}
	got := ToolCatalogue(toolList)
	if strings.Index(got, "alpha") > strings.Index(got, "zeta") {
		t.Error("parameters not sorted by name")
	}
}
