// luna-chat is an interactive terminal client for the Luna API.
//
// It keeps one conversation going across turns and offers a few local
// commands:
//
//	tools        List the tools available to the agent
//	clear        Clear the current conversation's history
//	quit, exit   Leave the session
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/lunahq/luna/internal/httpkit"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Luna API base URL")
	conversationID := flag.String("conversation", "", "resume an existing conversation by ID")
	flag.Parse()

	if err := repl(os.Stdin, os.Stdout, *baseURL, *conversationID); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

type client struct {
	baseURL string
	http    *http.Client
}

type chatRequest struct {
	Input          string `json:"input"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Output         string `json:"output"`
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error"`
}

func (c *client) chat(input, conversationID string) (*chatResponse, error) {
	body, err := json.Marshal(chatRequest{Input: input, ConversationID: conversationID})
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(c.baseURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server error: %s", out.Error)
	}
	return &out, nil
}

func (c *client) tools() (string, error) {
	resp, err := c.http.Get(c.baseURL + "/tools")
	if err != nil {
		return "", fmt.Errorf("tools request: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	var out struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(out.Tools) == 0 {
		return "(no tools registered)", nil
	}
	var b strings.Builder
	for _, t := range out.Tools {
		fmt.Fprintf(&b, "  %s - %s\n", t.Name, t.Description)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *client) clear(conversationID string) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/conversations/"+conversationID+"/clear", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clear request: %w", err)
	}
	httpkit.DrainAndClose(resp.Body, 1<<20)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

func repl(in io.Reader, out io.Writer, baseURL, conversationID string) error {
	c := &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Agent turns can take a while; no client-side deadline.
		http: httpkit.NewClient(httpkit.WithTimeout(0)),
	}

	fmt.Fprintln(out, "Luna chat. Type 'quit' to exit, 'tools' to list tools, 'clear' to reset history.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Bye.")
			return nil
		case "tools":
			list, err := c.tools()
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, list)
			continue
		case "clear":
			if conversationID == "" {
				fmt.Fprintln(out, "No conversation yet.")
				continue
			}
			if err := c.clear(conversationID); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "History cleared.")
			continue
		}

		resp, err := c.chat(line, conversationID)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		conversationID = resp.ConversationID
		fmt.Fprintln(out, resp.Output)
	}
}
