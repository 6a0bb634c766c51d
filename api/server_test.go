package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/userdeck/userdeck/pkg/bulkdelete"
	"github.com/userdeck/userdeck/pkg/cache"
	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/console"
	"github.com/userdeck/userdeck/pkg/events"
	"github.com/userdeck/userdeck/pkg/logger"
	"github.com/userdeck/userdeck/pkg/notify"
	"github.com/userdeck/userdeck/pkg/session"
	"github.com/userdeck/userdeck/pkg/types"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]types.Record
	nextID  int
}

func newMemStore(records ...types.Record) *memStore {
	s := &memStore{records: make(map[string]types.Record), nextID: 100}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) List(_ context.Context) (types.RecordList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(types.RecordList, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) Get(_ context.Context, id string) (*types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		return &r, nil
	}
	return nil, fmt.Errorf("record %s not found", id)
}

func (s *memStore) Create(_ context.Context, record types.Record) (*types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = fmt.Sprintf("%d", s.nextID)
	s.records[record.ID] = record
	return &record, nil
}

func (s *memStore) Update(_ context.Context, record types.Record) (*types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return &record, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *memStore) UploadAvatar(_ context.Context, id, filename string, _ io.Reader) (string, error) {
	return "https://cdn.example.com/avatars/" + id + "/" + filename, nil
}

func newTestServer(t *testing.T, records ...types.Record) *Server {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2!"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.LogLevel = "error"
	cfg.StateDir = t.TempDir()
	cfg.API.JWTSecret = "test-secret-at-least-16-chars"
	cfg.API.OperatorUser = "operator"
	cfg.API.OperatorBcrypt = string(hash)
	cfg.BulkDelete.UndoWindow = 5 * time.Second
	cfg.BulkDelete.TickInterval = 100 * time.Millisecond
	cfg.BulkDelete.ThrottleDelay = time.Millisecond

	log := logger.NewTestLogger()
	store := newMemStore(records...)
	workingSet := cache.NewWorkingSet(store, 0, log)
	if len(records) > 0 {
		workingSet.Restore(types.RecordList(records))
	}

	notifier := notify.NewCenter(log)
	slot, err := session.NewFileSlot(cfg.StateDir + "/pending_deletion.json")
	require.NoError(t, err)
	coordinator := bulkdelete.NewCoordinator(store, workingSet, notifier, slot,
		events.NewMemoryPublisher(), cfg.BulkDelete, log)
	t.Cleanup(coordinator.Close)

	cons := console.NewConsole(store, workingSet, notifier, coordinator, cfg.StateDir, log)
	return NewServer(cons, cfg, log)
}

func seedRecords() types.RecordList {
	return types.RecordList{
		{ID: "1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: "admin", IsActive: true},
		{ID: "2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Role: "member", IsActive: true},
	}
}

func doRequest(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, s *Server) string {
	t.Helper()

	w := doRequest(t, s, http.MethodPost, "/auth/login", "",
		LoginRequest{Username: "operator", Password: "hunter2!"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BaseResponse[LoginResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	return resp.Data.Token
}

func TestHealthIsOpen(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/auth/login", "",
		LoginRequest{Username: "operator", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, s, http.MethodPost, "/auth/login", "",
		LoginRequest{Username: "intruder", Password: "hunter2!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, seedRecords()...)

	w := doRequest(t, s, http.MethodGet, "/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, s, http.MethodGet, "/records", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListRecords(t *testing.T) {
	s := newTestServer(t, seedRecords()...)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodGet, "/records?search=grace", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BaseResponse[console.RecordPage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Records, 1)
	assert.Equal(t, "2", resp.Data.Records[0].ID)
}

func TestCreateAndGetRecord(t *testing.T) {
	s := newTestServer(t, seedRecords()...)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodPost, "/records", token, RecordRequest{
		FirstName: "Katherine", LastName: "Johnson", Email: "katherine@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp BaseResponse[types.Record]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)

	w = doRequest(t, s, http.MethodGet, "/records/"+resp.Data.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateRecordRejectsBadPayload(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodPost, "/records", token, map[string]string{
		"first_name": "NoEmail",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkDeleteFlow(t *testing.T) {
	s := newTestServer(t, seedRecords()...)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodPost, "/records/bulk-delete", token,
		BulkDeleteRequest{IDs: []string{"1"}})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(t, s, http.MethodGet, "/records/bulk-delete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status BaseResponse[BulkDeleteStatus]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.NotNil(t, status.Data)
	assert.Equal(t, string(bulkdelete.StatePending), status.Data.State)
	assert.Equal(t, []string{"1"}, status.Data.PendingIDs)

	// The pending record is gone from the listing while the window is open.
	w = doRequest(t, s, http.MethodGet, "/records", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page BaseResponse[console.RecordPage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Data.Total)

	// The countdown notification is visible to the rendering surface.
	w = doRequest(t, s, http.MethodGet, "/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notifications BaseResponse[[]types.Notification]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notifications))
	require.NotNil(t, notifications.Data)
	require.Len(t, *notifications.Data, 1)
	assert.Contains(t, (*notifications.Data)[0].Message, "1 user removed.")

	w = doRequest(t, s, http.MethodPost, "/records/bulk-delete/undo", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/records", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Data.Total)
}

func TestBulkDeleteConfirm(t *testing.T) {
	s := newTestServer(t, seedRecords()...)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodPost, "/records/bulk-delete", token,
		BulkDeleteRequest{IDs: []string{"1", "2"}})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(t, s, http.MethodPost, "/records/bulk-delete/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status BaseResponse[BulkDeleteStatus]
	w = doRequest(t, s, http.MethodGet, "/records/bulk-delete", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, string(bulkdelete.StateCommitted), status.Data.State)
}

func TestBulkDeleteRejectsEmptySelection(t *testing.T) {
	s := newTestServer(t, seedRecords()...)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodPost, "/records/bulk-delete", token,
		BulkDeleteRequest{IDs: []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThemeRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodPut, "/theme", token, ThemeRequest{Theme: types.ThemeDark})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/theme", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp BaseResponse[ThemeResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, types.ThemeDark, resp.Data.Theme)

	w = doRequest(t, s, http.MethodPut, "/theme", token, map[string]string{"theme": "sepia"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteRecordIsImmediate(t *testing.T) {
	s := newTestServer(t, seedRecords()...)
	token := loginToken(t, s)

	w := doRequest(t, s, http.MethodDelete, "/records/2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status BaseResponse[BulkDeleteStatus]
	w = doRequest(t, s, http.MethodGet, "/records/bulk-delete", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, string(bulkdelete.StateIdle), status.Data.State)
}
