package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIModel(t *testing.T, handler http.HandlerFunc) *OpenAIModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m, err := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "google/gemini-2.5-flash"})
	require.NoError(t, err)
	return m
}

func TestOpenAIModelGenerate(t *testing.T) {
	var body map[string]any
	m := newTestOpenAIModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"google/gemini-2.5-flash",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"sad"}}]}`)
	})

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("classify"),
		schema.UserMessage("I miss home"),
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "sad", msg.Content)

	assert.Equal(t, "google/gemini-2.5-flash", body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAIModelGenerateNonOK(t *testing.T) {
	m := newTestOpenAIModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
}

func TestOpenAIModelStream(t *testing.T) {
	m := newTestOpenAIModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Take ", "a breath."} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\","+
				"\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	var got strings.Builder
	for {
		chunk, err := sr.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got.WriteString(chunk.Content)
	}
	assert.Equal(t, "Take a breath.", got.String())
}

func TestConvertMessageRoles(t *testing.T) {
	sys, err := convertMessage(schema.SystemMessage("s"))
	require.NoError(t, err)
	assert.NotNil(t, sys.OfSystem)

	user, err := convertMessage(schema.UserMessage("u"))
	require.NoError(t, err)
	assert.NotNil(t, user.OfUser)

	asst, err := convertMessage(schema.AssistantMessage("a", nil))
	require.NoError(t, err)
	assert.NotNil(t, asst.OfAssistant)

	_, err = convertMessage(schema.ToolMessage("t", "call_1"))
	assert.Error(t, err)
}

func TestNewOpenAIModelValidates(t *testing.T) {
	_, err := NewOpenAIModel(OpenAIConfig{Model: "m"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewOpenAIModel(OpenAIConfig{APIKey: "k"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
