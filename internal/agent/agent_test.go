package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	requests  []openai.ChatCompletionRequest
	responses []func(w http.ResponseWriter)
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req openai.ChatCompletionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if n >= len(f.responses) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	f.responses[n](w)
}

func completion(msg openai.ChatCompletionMessage) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:      "cmpl-1",
			Object:  "chat.completion",
			Model:   "test-model",
			Choices: []openai.ChatCompletionChoice{{Index: 0, Message: msg, FinishReason: openai.FinishReasonStop}},
		})
	}
}

func failure(status int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream trouble","type":"server_error"}}`))
	}
}

type recordingTool struct {
	args []string
}

func (r *recordingTool) Call(_ context.Context, rawArgs string) string {
	r.args = append(r.args, rawArgs)
	return "Available Insurance Products: Comprehensive"
}

func newTestAgent(t *testing.T, p *fakeProvider, retries int) *Agent {
	t.Helper()
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	a := New(DefaultSpec(), NewClient("test-key", srv.URL+"/"), Options{Model: "test-model", Timeout: 2 * time.Second, MaxRetries: retries})
	a.backoff = 0
	return a
}

func TestReply_PlainAnswer(t *testing.T) {
	p := &fakeProvider{responses: []func(http.ResponseWriter){
		completion(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  Hello there!  "}),
	}}
	a := newTestAgent(t, p, 0)

	out, err := a.Reply(context.Background(), "GUEST USER: Not logged in\n\nUser message: hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", out)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[0].Content, "Customer Support Representative")
	assert.Contains(t, req.Messages[1].Content, "User message: hi")
	assert.NotContains(t, req.Messages[1].Content, "{user_message}")
	assert.Empty(t, req.Tools)
}

func TestReply_RunsToolCalls(t *testing.T) {
	p := &fakeProvider{responses: []func(http.ResponseWriter){
		completion(openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:   "call_1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "database_query",
					Arguments: `{"query_type":"insurance_products"}`,
				},
			}},
		}),
		completion(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "We offer Comprehensive cover."}),
	}}
	a := newTestAgent(t, p, 0)
	tool := &recordingTool{}
	a.Register(openai.Tool{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{Name: "database_query"}}, tool)

	out, err := a.Reply(context.Background(), "what products do you have?")
	require.NoError(t, err)
	assert.Equal(t, "We offer Comprehensive cover.", out)
	assert.Equal(t, []string{`{"query_type":"insurance_products"}`}, tool.args)

	require.Len(t, p.requests, 2)
	assert.Len(t, p.requests[0].Tools, 1)
	last := p.requests[1].Messages[len(p.requests[1].Messages)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "Comprehensive")
}

func TestReply_UnknownToolIsReportedToModel(t *testing.T) {
	p := &fakeProvider{responses: []func(http.ResponseWriter){
		completion(openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{ID: "c", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "weather"}}},
		}),
		completion(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "ok"}),
	}}
	a := newTestAgent(t, p, 0)

	_, err := a.Reply(context.Background(), "x")
	require.NoError(t, err)
	last := p.requests[1].Messages[len(p.requests[1].Messages)-1]
	assert.Equal(t, "Unknown tool: weather", last.Content)
}

func TestReply_RetriesServerErrors(t *testing.T) {
	p := &fakeProvider{responses: []func(http.ResponseWriter){
		failure(http.StatusBadGateway),
		completion(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "recovered"}),
	}}
	a := newTestAgent(t, p, 3)

	out, err := a.Reply(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Len(t, p.requests, 2)
}

func TestReply_GivesUpAfterMaxRetries(t *testing.T) {
	p := &fakeProvider{}
	a := newTestAgent(t, p, 2)

	_, err := a.Reply(context.Background(), "hi")
	require.Error(t, err)
	assert.Len(t, p.requests, 3)
}

func TestReply_DoesNotRetryClientErrors(t *testing.T) {
	p := &fakeProvider{responses: []func(http.ResponseWriter){failure(http.StatusUnauthorized)}}
	a := newTestAgent(t, p, 3)

	_, err := a.Reply(context.Background(), "hi")
	require.Error(t, err)
	assert.Len(t, p.requests, 1)
}

func TestReply_EmptyContent(t *testing.T) {
	p := &fakeProvider{responses: []func(http.ResponseWriter){
		completion(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "   "}),
	}}
	a := newTestAgent(t, p, 0)

	_, err := a.Reply(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestLoadSpec(t *testing.T) {
	spec, err := LoadSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Customer Support Representative", spec.Agent.Role)
	assert.Equal(t, 5, spec.Style.MaxIterations)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  role: Tester\ntask:\n  description: \"Say {user_message}\"\n"), 0o600))
	spec, err = LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "Tester", spec.Agent.Role)

	_, err = ParseSpec([]byte("agent:\n  role: x\n"))
	assert.Error(t, err)
}
