// Package prompts assembles the system prompt for the agent loop: the
// assistant's base instructions, the rendered tool catalogue, and the
// action-block response format the output parser expects.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lunahq/luna/internal/tools"
)

// BasePrompt is the default assistant identity used when no system
// prompt is configured.
const BasePrompt = `I am Luna, an AI assistant with access to a flexible set of tools. I will proactively identify when specific tools could be helpful and use them appropriately to assist you.

I will remain aware of my current capabilities and available tools throughout our conversation.`

// actionFormat tells the model how to respond so the output parser can
// interpret it.
const actionFormat = "When you need to use a tool, respond with a single JSON block:\n" +
	"```json\n{\"action\": \"tool_name\", \"action_input\": {\"param\": \"value\"}}\n```\n" +
	"When you have the final response for the user, use the action \"Final Answer\":\n" +
	"```json\n{\"action\": \"Final Answer\", \"action_input\": \"your response here\"}\n```"

// IncompleteRunNotice is returned when the loop hits its iteration
// ceiling without the model producing a final answer.
const IncompleteRunNotice = "I wasn't able to finish working on that within my limits. Here is what I found so far:"

// System builds the full system prompt. An empty base falls back to
// BasePrompt; the tool catalogue and response format are appended when
// any tools are registered.
func System(base string, toolList []*tools.Tool) string {
	if base == "" {
		base = BasePrompt
	}

	parts := []string{base}
	if len(toolList) > 0 {
		parts = append(parts, ToolCatalogue(toolList), actionFormat)
	}
	return strings.Join(parts, "\n\n")
}

// ToolCatalogue renders the registered tools for the system prompt:
// each tool's name and description, any tool-specific instructions,
// and its declared parameters.
func ToolCatalogue(toolList []*tools.Tool) string {
	var b strings.Builder
	b.WriteString("Available Tools:\n\n")

	for _, t := range toolList {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		if t.Prompt != "" {
			fmt.Fprintf(&b, "\nTool-specific instructions:\n%s\n", t.Prompt)
		}
		if len(t.Params) > 0 {
			b.WriteString("Parameters:\n")
			names := make([]string, 0, len(t.Params))
			for name := range t.Params {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				p := t.Params[name]
				fmt.Fprintf(&b, "  - %s (%s)", name, p.Type)
				if p.Description != "" {
					fmt.Fprintf(&b, ": %s", p.Description)
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
