// Package console implements the operator-facing record operations: listing
// with search/filter/sort/pagination, single-record CRUD, avatar upload, the
// bulk deletion entry points, and the persisted theme preference.
package console

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/userdeck/userdeck/pkg/bulkdelete"
	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/types"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	themeFileName  = "theme.json"
)

// RecordPage is one page of the filtered, sorted working set
type RecordPage struct {
	Records types.RecordList `json:"records"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// Console coordinates the record store, the working-set cache, the notifier,
// and the bulk deletion coordinator behind a single service surface.
type Console struct {
	store       interfaces.RecordStore
	cache       interfaces.WorkingSetCache
	notifier    interfaces.Notifier
	coordinator *bulkdelete.Coordinator
	validate    *validator.Validate
	logger      interfaces.Logger

	themeMu   sync.RWMutex
	theme     types.Theme
	themePath string
}

// NewConsole creates the console service. The theme preference is loaded
// from stateDir if a prior run persisted one.
func NewConsole(
	store interfaces.RecordStore,
	workingSet interfaces.WorkingSetCache,
	notifier interfaces.Notifier,
	coordinator *bulkdelete.Coordinator,
	stateDir string,
	log interfaces.Logger,
) *Console {
	c := &Console{
		store:       store,
		cache:       workingSet,
		notifier:    notifier,
		coordinator: coordinator,
		validate:    validator.New(),
		logger:      log,
		theme:       types.ThemeLight,
		themePath:   filepath.Join(stateDir, themeFileName),
	}
	c.loadTheme()
	return c
}

// ListRecords returns one page of the working set after applying the query's
// search, filter, and sort. An unpopulated cache triggers a remote fetch.
func (c *Console) ListRecords(ctx context.Context, query types.ListQuery) (*RecordPage, error) {
	if err := c.validate.Struct(query); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	records := c.cache.Read()
	if len(records) == 0 {
		if err := c.cache.Invalidate(ctx); err != nil {
			return nil, errors.NewRemoteError("failed to load records", err)
		}
		records = c.cache.Read()
	}

	filtered := filterRecords(records, query)
	sortRecords(filtered, query)

	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	total := len(filtered)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &RecordPage{
		Records: filtered[start:end],
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// GetRecord fetches a single record from the remote store
func (c *Console) GetRecord(ctx context.Context, id string) (*types.Record, error) {
	if id == "" {
		return nil, errors.NewMissingFieldError("id")
	}
	return c.store.Get(ctx, id)
}

// CreateRecord validates and creates a record, then mirrors it into the
// working set so the console sees it without waiting for a refetch.
func (c *Console) CreateRecord(ctx context.Context, record types.Record) (*types.Record, error) {
	if err := c.validate.Struct(record); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	created, err := c.store.Create(ctx, record)
	if err != nil {
		return nil, err
	}

	c.cache.Write(func(working types.RecordList) types.RecordList {
		return append(working, *created)
	})
	c.notifier.Show(types.NotificationSuccess,
		created.DisplayName()+" created",
		interfaces.ShowOptions{Duration: 3 * time.Second})

	c.logger.Info("Record created", map[string]interface{}{"record_id": created.ID})
	return created, nil
}

// UpdateRecord validates and updates a record, mirroring the change into the
// working set.
func (c *Console) UpdateRecord(ctx context.Context, record types.Record) (*types.Record, error) {
	if record.ID == "" {
		return nil, errors.NewMissingFieldError("id")
	}
	if err := c.validate.Struct(record); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	updated, err := c.store.Update(ctx, record)
	if err != nil {
		return nil, err
	}

	c.cache.Write(func(working types.RecordList) types.RecordList {
		for i, r := range working {
			if r.ID == updated.ID {
				working[i] = *updated
			}
		}
		return working
	})
	c.notifier.Show(types.NotificationSuccess,
		updated.DisplayName()+" updated",
		interfaces.ShowOptions{Duration: 3 * time.Second})

	c.logger.Info("Record updated", map[string]interface{}{"record_id": updated.ID})
	return updated, nil
}

// DeleteRecord deletes a single record immediately. Only bulk deletion gets
// the undo window; a single delete is settled on return.
func (c *Console) DeleteRecord(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewMissingFieldError("id")
	}

	if err := c.store.Delete(ctx, id); err != nil {
		c.notifier.Show(types.NotificationError,
			"Failed to delete user",
			interfaces.ShowOptions{Duration: 5 * time.Second})
		return errors.NewDeleteFailedError(id, err)
	}

	c.cache.Write(func(working types.RecordList) types.RecordList {
		return working.Without([]string{id})
	})
	c.notifier.Show(types.NotificationSuccess,
		"User deleted",
		interfaces.ShowOptions{Duration: 3 * time.Second})

	c.logger.Info("Record deleted", map[string]interface{}{"record_id": id})
	return nil
}

// UploadAvatar uploads an avatar for a record and mirrors the returned URL
// into the working set.
func (c *Console) UploadAvatar(ctx context.Context, id, filename string, content io.Reader) (string, error) {
	if id == "" {
		return "", errors.NewMissingFieldError("id")
	}
	if filename == "" {
		return "", errors.NewMissingFieldError("filename")
	}

	url, err := c.store.UploadAvatar(ctx, id, filename, content)
	if err != nil {
		return "", err
	}

	c.cache.Write(func(working types.RecordList) types.RecordList {
		for i, r := range working {
			if r.ID == id {
				working[i].AvatarURL = url
			}
		}
		return working
	})
	return url, nil
}

// BulkDelete starts a bulk deletion for the given ids, in the given order.
// Selection order is preserved all the way to the commit loop.
func (c *Console) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return errors.NewEmptySelectionError()
	}

	byID := make(map[string]types.Record)
	for _, r := range c.cache.Read() {
		byID[r.ID] = r
	}

	selection := make(types.RecordList, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			selection = append(selection, r)
		} else {
			selection = append(selection, types.Record{ID: id})
		}
	}

	return c.coordinator.Start(ctx, selection)
}

// UndoBulkDelete reverses the pending bulk deletion
func (c *Console) UndoBulkDelete(ctx context.Context) error {
	return c.coordinator.Undo(ctx)
}

// ConfirmBulkDelete settles the pending bulk deletion immediately
func (c *Console) ConfirmBulkDelete(ctx context.Context) error {
	return c.coordinator.Commit(ctx)
}

// BulkDeleteStatus reports the coordinator state and the pending ids
func (c *Console) BulkDeleteStatus() (bulkdelete.State, []string) {
	return c.coordinator.State(), c.coordinator.PendingIDs()
}

// Notifications returns the live notifications for the rendering surface
func (c *Console) Notifications() []types.Notification {
	return c.notifier.Active()
}

// Theme returns the current theme preference
func (c *Console) Theme() types.Theme {
	c.themeMu.RLock()
	defer c.themeMu.RUnlock()
	return c.theme
}

// SetTheme persists the theme preference across restarts
func (c *Console) SetTheme(theme types.Theme) error {
	if !theme.IsValid() {
		return errors.NewInvalidInputError("theme must be light or dark")
	}

	c.themeMu.Lock()
	defer c.themeMu.Unlock()
	c.theme = theme

	data, err := json.Marshal(map[string]types.Theme{"theme": theme})
	if err != nil {
		return errors.NewInternalErrorWithCause("failed to encode theme", err)
	}
	if err := os.WriteFile(c.themePath, data, 0644); err != nil {
		c.logger.Warn("Failed to persist theme", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func (c *Console) loadTheme() {
	data, err := os.ReadFile(c.themePath)
	if err != nil {
		return
	}
	var stored map[string]types.Theme
	if err := json.Unmarshal(data, &stored); err != nil {
		return
	}
	if t, ok := stored["theme"]; ok && t.IsValid() {
		c.theme = t
	}
}

// filterRecords applies search and filter without mutating the input
func filterRecords(records types.RecordList, query types.ListQuery) types.RecordList {
	search := strings.ToLower(strings.TrimSpace(query.Search))
	out := make(types.RecordList, 0, len(records))
	for _, r := range records {
		if query.Role != "" && r.Role != query.Role {
			continue
		}
		if query.ActiveOnly && !r.IsActive {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(r.DisplayName() + " " + r.Email)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func sortRecords(records types.RecordList, query types.ListQuery) {
	if query.SortBy == "" {
		return
	}

	key := func(r types.Record) string {
		switch query.SortBy {
		case "first_name":
			return strings.ToLower(r.FirstName)
		case "last_name":
			return strings.ToLower(r.LastName)
		case "email":
			return strings.ToLower(r.Email)
		case "role":
			return strings.ToLower(r.Role)
		case "created_at":
			return r.CreatedAt.Format(time.RFC3339Nano)
		default:
			return r.ID
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if query.SortDir == types.SortDescending {
			return key(records[i]) > key(records[j])
		}
		return key(records[i]) < key(records[j])
	})
}
