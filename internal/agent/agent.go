// Package agent runs the customer support model with database tool access.
package agent

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// ErrNoResponse is returned when the model finishes without any text.
var ErrNoResponse = errors.New("no response generated")

// Spec is the prompt file: who the agent is, what the task is and how to sample.
type Spec struct {
	Agent struct {
		Role      string `yaml:"role"`
		Goal      string `yaml:"goal"`
		Backstory string `yaml:"backstory"`
	} `yaml:"agent"`
	Task struct {
		Description    string `yaml:"description"`
		ExpectedOutput string `yaml:"expected_output"`
	} `yaml:"task"`
	Style struct {
		Temperature   float32 `yaml:"temperature"`
		MaxTokens     int     `yaml:"max_tokens"`
		MaxIterations int     `yaml:"max_iterations"`
	} `yaml:"style"`
}

// LoadSpec reads the prompt file at path. A missing file falls back to the
// built-in prompts.
func LoadSpec(path string) (Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Spec{}, err
		}
		log.Warnf("prompt file %q not found, using built-in prompts", path)
		b = defaultPrompts
	}
	return ParseSpec(b)
}

func ParseSpec(b []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return Spec{}, fmt.Errorf("failed to parse prompts: %w", err)
	}
	if strings.TrimSpace(spec.Task.Description) == "" {
		return Spec{}, fmt.Errorf("prompts: task.description is required")
	}
	return spec, nil
}

// DefaultSpec returns the built-in prompts.
func DefaultSpec() Spec {
	spec, err := ParseSpec(defaultPrompts)
	if err != nil {
		panic(err)
	}
	return spec
}

// Tool executes a single function call and returns its text result.
type Tool interface {
	Call(ctx context.Context, rawArgs string) string
}

type Options struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Agent answers one customer message per call. It keeps no conversation state.
type Agent struct {
	spec       Spec
	client     *openai.Client
	model      string
	tools      map[string]Tool
	toolDefs   []openai.Tool
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewClient builds an OpenAI-compatible client for baseURL.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

func New(spec Spec, client *openai.Client, opts Options) *Agent {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Agent{
		spec:       spec,
		client:     client,
		model:      opts.Model,
		tools:      map[string]Tool{},
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// Register makes a tool available to the model.
func (a *Agent) Register(def openai.Tool, tool Tool) {
	a.tools[def.Function.Name] = tool
	a.toolDefs = append(a.toolDefs, def)
}

func (a *Agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", strings.TrimSpace(a.spec.Agent.Role))
	if g := strings.TrimSpace(a.spec.Agent.Goal); g != "" {
		fmt.Fprintf(&b, "Your goal: %s\n", g)
	}
	if bs := strings.TrimSpace(a.spec.Agent.Backstory); bs != "" {
		b.WriteString(bs)
		b.WriteString("\n")
	}
	if eo := strings.TrimSpace(a.spec.Task.ExpectedOutput); eo != "" {
		fmt.Fprintf(&b, "\nExpected output: %s\n", eo)
	}
	return b.String()
}

func (a *Agent) taskPrompt(userMessage string) string {
	return strings.ReplaceAll(a.spec.Task.Description, "{user_message}", userMessage)
}

// Reply runs the task for userMessage, letting the model call registered
// tools until it produces a final answer.
func (a *Agent) Reply(ctx context.Context, userMessage string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: a.taskPrompt(userMessage)},
	}

	temp := a.spec.Style.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	maxIter := a.spec.Style.MaxIterations
	if maxIter <= 0 {
		maxIter = 5
	}

	for iter := 0; iter < maxIter; iter++ {
		req := openai.ChatCompletionRequest{
			Model:       a.model,
			Temperature: temp,
			MaxTokens:   a.spec.Style.MaxTokens,
			Messages:    messages,
		}
		if len(a.toolDefs) > 0 {
			req.Tools = a.toolDefs
		}

		resp, err := a.complete(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrNoResponse
		}
		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			text := strings.TrimSpace(msg.Content)
			if text == "" {
				return "", ErrNoResponse
			}
			return text, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.runTool(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return "", fmt.Errorf("agent stopped after %d tool rounds: %w", maxIter, ErrNoResponse)
}

func (a *Agent) runTool(ctx context.Context, call openai.ToolCall) string {
	tool, ok := a.tools[call.Function.Name]
	if !ok {
		log.Warnf("model requested unknown tool %q", call.Function.Name)
		return fmt.Sprintf("Unknown tool: %s", call.Function.Name)
	}
	log.WithFields(log.Fields{
		"tool": call.Function.Name,
		"args": call.Function.Arguments,
	}).Info("agent.tool_call")
	return tool.Call(ctx, call.Function.Arguments)
}

// complete calls the provider with a per-attempt timeout, retrying up to
// maxRetries times on failure.
func (a *Agent) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(a.backoff * time.Duration(attempt)):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
		resp, err := a.client.CreateChatCompletion(attemptCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		log.WithFields(log.Fields{"attempt": attempt + 1, "error": err.Error()}).Warn("agent.completion.retry")
	}
	return openai.ChatCompletionResponse{}, fmt.Errorf("chat completion failed: %w", lastErr)
}

// retryable reports whether a provider error might succeed on another attempt.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}
