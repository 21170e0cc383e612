package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RuntimeConfig configures the OpenAI-compatible runtime.
type RuntimeConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates requests. Resolved via keyring/env at load time.
	APIKey string `yaml:"api_key"`
	// Model is the chat model identifier.
	Model string `yaml:"model"`
	// MaxTurns bounds tool-call iterations per Run. Default 50.
	MaxTurns int `yaml:"max_turns"`
	// TimeoutSeconds bounds each API call. Default 120.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// OpenAIRuntime drives an OpenAI-compatible chat completions endpoint
// with function calling. Threads keep their message history in memory for
// the lifetime of a session, so the post-session reminder sweep continues
// the same context.
type OpenAIRuntime struct {
	config RuntimeConfig
	http   *http.Client
	log    *slog.Logger

	mu      sync.Mutex
	threads map[string][]chatMessage
}

// NewOpenAIRuntime creates the runtime.
func NewOpenAIRuntime(config RuntimeConfig, logger *slog.Logger) *OpenAIRuntime {
	if config.MaxTurns <= 0 {
		config.MaxTurns = 50
	}
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIRuntime{
		config:  config,
		http:    &http.Client{Timeout: timeout},
		log:     logger.With("component", "runtime"),
		threads: make(map[string][]chatMessage),
	}
}

// OpenThread starts a fresh reasoning thread for the conversation.
func (rt *OpenAIRuntime) OpenThread(_ context.Context, conversation string) (string, error) {
	threadID := uuid.NewString()
	rt.mu.Lock()
	rt.threads[threadID] = nil
	rt.mu.Unlock()
	rt.log.Info("thread opened", "thread_id", threadID, "conversation", conversation)
	return threadID, nil
}

// CloseThread drops a thread's history. Called after the session releases
// its claim.
func (rt *OpenAIRuntime) CloseThread(threadID string) {
	rt.mu.Lock()
	delete(rt.threads, threadID)
	rt.mu.Unlock()
}

// Run executes one agent turn: it feeds the instruction to the model and
// keeps dispatching requested tool calls until the model stops asking for
// them, the terminate tool runs, or the turn budget is spent.
func (rt *OpenAIRuntime) Run(ctx context.Context, req *RunRequest) (string, error) {
	rt.mu.Lock()
	history := rt.threads[req.ThreadID]
	rt.mu.Unlock()

	messages := []chatMessage{{Role: "system", Content: req.SystemPrompt}}
	messages = append(messages, history...)
	messages = append(messages, chatMessage{Role: "user", Content: req.Instruction})

	tools := toolDefinitions(req.Tools)
	var finalText string

	for turn := 0; turn < rt.config.MaxTurns; turn++ {
		resp, err := rt.complete(ctx, messages, tools)
		if err != nil {
			return "", err
		}
		finalText = resp.Content

		messages = append(messages, chatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			break
		}

		terminated := false
		for _, call := range resp.ToolCalls {
			result := rt.executeCall(ctx, req.Tools, call)
			messages = append(messages, chatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
			if call.Function.Name == "terminate" {
				terminated = true
			}
		}
		if terminated {
			break
		}
	}

	// Persist the turn into the thread, minus the system message.
	rt.mu.Lock()
	rt.threads[req.ThreadID] = messages[1:]
	rt.mu.Unlock()

	return finalText, nil
}

func (rt *OpenAIRuntime) executeCall(ctx context.Context, registry *Registry, call ToolCall) string {
	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("error: invalid tool arguments: %v", err)
		}
	}

	rt.log.Info("tool call", "tool", call.Function.Name)
	result, err := registry.Execute(ctx, call.Function.Name, args)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}

	switch v := result.(type) {
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: encode result: %v", err)
		}
		return string(encoded)
	}
}

func (rt *OpenAIRuntime) complete(ctx context.Context, messages []chatMessage, tools []toolDefinition) (*completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:    rt.config.Model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		rt.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+rt.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := rt.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion call: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat completion response: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode chat completion response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("chat completion: %s", resp.Error.Message)
	}
	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("chat completion returned %d", httpResp.StatusCode)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	return &completion{
		Content:   choice.Message.Content,
		ToolCalls: choice.Message.ToolCalls,
	}, nil
}

func toolDefinitions(registry *Registry) []toolDefinition {
	defs := registry.Definitions()
	out := make([]toolDefinition, 0, len(defs))
	for _, def := range defs {
		params, _ := json.Marshal(def.Parameters)
		out = append(out, toolDefinition{
			Type: "function",
			Function: functionDef{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// ---- Wire types (OpenAI-compatible chat completions) ----

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []chatMessage    `json:"messages"`
	Tools    []toolDefinition `json:"tools,omitempty"`
}

type toolDefinition struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type completion struct {
	Content   string
	ToolCalls []ToolCall
}

var _ Runtime = (*OpenAIRuntime)(nil)
