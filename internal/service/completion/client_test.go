package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcClient func(ctx context.Context, req Request) (string, error)

func (f funcClient) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func TestWithTimeoutReturnsResult(t *testing.T) {
	client := WithTimeout(funcClient(func(context.Context, Request) (string, error) {
		return "ok", nil
	}), time.Second)

	text, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestWithTimeoutExpiresHangingBackend(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	client := WithTimeout(funcClient(func(context.Context, Request) (string, error) {
		<-release
		return "late", nil
	}), 20*time.Millisecond)

	start := time.Now()
	_, err := client.Complete(context.Background(), Request{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeoutWrapsBackendErrors(t *testing.T) {
	boom := errors.New("boom")
	client := WithTimeout(funcClient(func(context.Context, Request) (string, error) {
		return "", boom
	}), time.Second)

	_, err := client.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestWithTimeoutDisabled(t *testing.T) {
	inner := funcClient(func(context.Context, Request) (string, error) { return "", nil })
	assert.NotNil(t, WithTimeout(inner, 0))
}

type fakeChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.input = input
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func TestChainClientBuildsConversation(t *testing.T) {
	fake := &fakeChatModel{reply: `{"feedback":"good","question":"next?"}`}
	client, err := NewChainClient(context.Background(), fake)
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), Request{
		System: "You are a strict interviewer. Reply as {\"feedback\": ...}",
		History: []Message{
			{Role: RoleAssistant, Content: "Please introduce yourself."},
			{Role: RoleUser, Content: "I build backends."},
		},
		Prompt: "Return JSON",
	})
	require.NoError(t, err)
	assert.Equal(t, fake.reply, text)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Contains(t, fake.input[0].Content, `{"feedback": ...}`)
	assert.Equal(t, schema.Assistant, fake.input[1].Role)
	assert.Equal(t, schema.User, fake.input[2].Role)
	assert.Equal(t, schema.User, fake.input[3].Role)
	assert.Equal(t, "Return JSON", fake.input[3].Content)
}

func TestChainClientSurfacesBackendUnavailable(t *testing.T) {
	client, err := NewChainClient(context.Background(), &fakeChatModel{err: errors.New("network down")})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestChainClientRejectsEmptyContent(t *testing.T) {
	client, err := NewChainClient(context.Background(), &fakeChatModel{reply: "  "})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNewChainClientRequiresModel(t *testing.T) {
	_, err := NewChainClient(context.Background(), nil)
	assert.Error(t, err)
}

func newOpenAIServer(t *testing.T, status int, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestOpenAIClientComplete(t *testing.T) {
	var captured map[string]any
	server := newOpenAIServer(t, http.StatusOK, "hello", &captured)
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "key", BaseURL: server.URL + "/v1/", Model: "test-model"})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), Request{
		System:  "system",
		History: []Message{{Role: RoleAssistant, Content: "q"}, {Role: RoleUser, Content: "a"}},
		Prompt:  "prompt",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	assert.Equal(t, "test-model", captured["model"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	first := messages[0].(map[string]any)
	last := messages[3].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "user", last["role"])
	assert.Equal(t, "prompt", last["content"])
}

func TestOpenAIClientBackendError(t *testing.T) {
	server := newOpenAIServer(t, http.StatusServiceUnavailable, "", nil)
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "key", BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Prompt: "prompt"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestOpenAIClientEmptyChoice(t *testing.T) {
	server := newOpenAIServer(t, http.StatusOK, "", nil)
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "key", BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Prompt: "prompt"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNewOpenAIClientRequiresModel(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{APIKey: "key"})
	assert.Error(t, err)
}

func TestDisabledClientAlwaysUnavailable(t *testing.T) {
	_, err := Disabled{Reason: "no credentials"}.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "no credentials")
}
