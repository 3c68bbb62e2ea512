package sink_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robertof/go-miscale-logger/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgRESTInsert(t *testing.T) {
	var got struct {
		method, path, apikey, auth, prefer string
		body                               map[string]string
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.apikey = r.Header.Get("apikey")
		got.auth = r.Header.Get("Authorization")
		got.prefer = r.Header.Get("Prefer")

		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got.body)

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	remote := sink.NewPostgREST(srv.URL+"/", "secret-key", "weight", srv.Client())

	err := remote.Insert(context.Background(), sink.Row{Time: "2026-10-19 07:30:05", Weight: "72.50"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/rest/v1/weight", got.path)
	assert.Equal(t, "secret-key", got.apikey)
	assert.Equal(t, "Bearer secret-key", got.auth)
	assert.Equal(t, "return=minimal", got.prefer)
	assert.Equal(t, map[string]string{"time": "2026-10-19 07:30:05", "weight": "72.50"}, got.body)
}

func TestPostgRESTInsertRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	remote := sink.NewPostgREST(srv.URL, "wrong", "weight", srv.Client())

	err := remote.Insert(context.Background(), sink.Row{Time: "2026-10-19 07:30:05", Weight: "72.50"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}
