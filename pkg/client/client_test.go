package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LoginAndSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/login":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice", req["username"])
			_, _ = w.Write([]byte(`{"token":"tok","user_id":"u-1","username":"alice","expires_at":"2026-01-01T00:00:00Z"}`))
		case "/v1/messages":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "bob", req["recipient"])
			assert.Equal(t, "hi", req["body"])
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"message_id":7,"status":"pending"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	s, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, 2026, s.ExpiresAt.Year())

	id, err := c.Send(context.Background(), s.Token, "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestClient_PollEncodesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("since"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"messages":[{"message_id":13,"status":"delivered","reply_body":"hey"},{"message_id":14,"status":"pending"}]}`))
	}))
	defer srv.Close()

	msgs, err := New(srv.URL, nil).Poll(context.Background(), "tok", 12, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Resolved())
	assert.Equal(t, "hey", *msgs[0].ReplyBody)
	assert.False(t, msgs[1].Resolved())
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"session expired"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Me(context.Background(), "stale")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "session expired", apiErr.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestClient_AckAndConversationPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		if r.URL.Path == "/v1/conversations/bob" {
			_, _ = w.Write([]byte(`{"with":"bob","messages":[],"pagination":{"total":3,"limit":2,"offset":1,"has_more":false}}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"consumed"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	require.NoError(t, c.Ack(context.Background(), "tok", 42))
	conv, err := c.Conversation(context.Background(), "tok", "bob", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), conv.Pagination.Total)

	assert.Equal(t, []string{
		"POST /v1/messages/42/consumed",
		"GET /v1/conversations/bob?limit=2&offset=1",
	}, paths)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Logout(context.Background(), "tok")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Message)
	assert.False(t, IsUnauthorized(err))
}
