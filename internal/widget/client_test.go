package widget

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend_Success(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"response": "Hello there"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	reply, err := c.Send(context.Background(), "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply)
	assert.Equal(t, map[string]any{"message": "  hi  "}, got)
}

func TestClientSend_EmptyResponseIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": ""}`))
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL, time.Second).Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestClientSend_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"response": "ignored"}`},
		{"plain text error", http.StatusInternalServerError, "No response generated."},
		{"not json", http.StatusOK, "<html>oops</html>"},
		{"missing response", http.StatusOK, `{"reply": "hi"}`},
		{"null response", http.StatusOK, `{"response": null}`},
		{"wrong type", http.StatusOK, `{"response": 42}`},
		{"redirect status", http.StatusNotModified, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Send(context.Background(), "hi")
			assert.ErrorIs(t, err, ErrChatFailed)
		})
	}
}

func TestClientSend_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrChatFailed)
}

func TestClientSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrChatFailed)
}
