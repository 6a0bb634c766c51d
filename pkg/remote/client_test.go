package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/logger"
	"github.com/userdeck/userdeck/pkg/types"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.RemoteConfig{
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		RetryCount: 3,
	}, logger.NewTestLogger())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(&config.RemoteConfig{}, logger.NewTestLogger())
	assert.Error(t, err)

	_, err = NewClient(nil, logger.NewTestLogger())
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users", r.URL.Path)
		writeJSON(t, w, http.StatusOK, types.RecordList{
			{ID: "1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
			{ID: "2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"},
		})
	}))

	records, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, records.IDs())
}

func TestListRetriesTransientFailures(t *testing.T) {
	var calls int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, http.StatusOK, types.RecordList{{ID: "1"}})
	}))

	records, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))
}

func TestGetNotFoundIsNotRetried(t *testing.T) {
	var calls int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Get(context.Background(), "42")
	require.Error(t, err)
	udErr := errors.GetUserdeckError(err)
	require.NotNil(t, udErr)
	assert.Equal(t, errors.ErrCodeNotFound, udErr.Code)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "404 must not be retried")
}

func TestCreate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var rec types.Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec.ID = "101"
		writeJSON(t, w, http.StatusCreated, rec)
	}))

	created, err := client.Create(context.Background(), types.Record{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "101", created.ID)
	assert.Equal(t, "Ada", created.FirstName)
}

func TestUpdateRequiresID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.Update(context.Background(), types.Record{FirstName: "Ada"})
	assert.Error(t, err)
}

func TestDeleteDoesNotRetry(t *testing.T) {
	var calls int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.Delete(context.Background(), "1")
	require.Error(t, err)
	udErr := errors.GetUserdeckError(err)
	require.NotNil(t, udErr)
	assert.Equal(t, errors.ErrCodeDeleteFailed, udErr.Code)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "deletes are never retried automatically")
}

func TestDeleteSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/users/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, client.Delete(context.Background(), "7"))
}

func TestUploadAvatar(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/1/avatar", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		file, header, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "ada.png", header.Filename)

		writeJSON(t, w, http.StatusOK, map[string]string{
			"avatar_url": "https://cdn.example.com/avatars/1/ada.png",
		})
	}))

	url, err := client.UploadAvatar(context.Background(), "1", "ada.png",
		strings.NewReader("fake-png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/1/ada.png", url)
}
