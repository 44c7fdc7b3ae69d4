// Package assistant is the REST client for the conversational AI service
// (OpenAI assistants v2): threads, runs, tool outputs and message listing,
// plus the run poller shared by the chat path and the guessing game.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the assistant service. The bearer credential is supplied
// once at construction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient builds a client against the default API endpoint.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

// NewClientWithBaseURL builds a client against a custom endpoint, used in tests.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// ThreadMessage is a user message appended to a thread.
type ThreadMessage struct {
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Run identifies a started assistant run.
type Run struct {
	ID string `json:"id"`
}

// LastError is the terminal error reported by a failed run.
type LastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolCallFunction names a requested tool invocation and its raw arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one pending tool invocation of a requires_action run.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// RequiredAction is the payload of a requires_action run status.
type RequiredAction struct {
	Type              string `json:"type"`
	SubmitToolOutputs struct {
		ToolCalls []ToolCall `json:"tool_calls"`
	} `json:"submit_tool_outputs"`
}

// RunStatus is the polled state of a run.
type RunStatus struct {
	Status         string          `json:"status"`
	LastError      *LastError      `json:"last_error"`
	RequiredAction *RequiredAction `json:"required_action"`
}

// ToolOutput is the textual result of one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// CreateThread opens a fresh conversation thread and returns its id.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/threads", nil, &out); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return out.ID, nil
}

// AddMessage appends a message to a thread.
func (c *Client) AddMessage(ctx context.Context, threadID string, msg ThreadMessage) error {
	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if err := c.do(ctx, http.MethodPost, path, msg, nil); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

// CreateRun starts an assistant run on a thread with optional additional
// instructions.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID, instructions string) (Run, error) {
	body := struct {
		AssistantID            string `json:"assistant_id"`
		AdditionalInstructions string `json:"additional_instructions,omitempty"`
	}{
		AssistantID:            assistantID,
		AdditionalInstructions: instructions,
	}
	var run Run
	path := fmt.Sprintf("/threads/%s/runs", threadID)
	if err := c.do(ctx, http.MethodPost, path, body, &run); err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// GetRun fetches the current status of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (RunStatus, error) {
	var status RunStatus
	path := fmt.Sprintf("/threads/%s/runs/%s", threadID, runID)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return RunStatus{}, fmt.Errorf("get run: %w", err)
	}
	return status, nil
}

// SubmitToolOutputs submits all collected tool outputs for a run in one batch.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	body := struct {
		ToolOutputs []ToolOutput `json:"tool_outputs"`
	}{ToolOutputs: outputs}
	path := fmt.Sprintf("/threads/%s/runs/%s/submit_tool_outputs", threadID, runID)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("submit tool outputs: %w", err)
	}
	return nil
}

// ListMessages returns the assistant-authored text fragments of a run in
// arrival order.
func (c *Client) ListMessages(ctx context.Context, threadID, runID string) ([]string, error) {
	var out struct {
		Data []struct {
			Content []struct {
				Text struct {
					Value *string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/threads/%s/messages?run_id=%s", threadID, url.QueryEscape(runID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var fragments []string
	for _, msg := range out.Data {
		for _, part := range msg.Content {
			if part.Text.Value != nil {
				fragments = append(fragments, *part.Text.Value)
			}
		}
	}
	return fragments, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
