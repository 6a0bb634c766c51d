package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/types"
)

// FileSlot persists the pending-deletion blob as a single JSON file
type FileSlot struct {
	path string
}

// NewFileSlot creates a file-backed session slot at the given path
func NewFileSlot(path string) (*FileSlot, error) {
	if path == "" {
		return nil, fmt.Errorf("session slot path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileSlot{path: path}, nil
}

// Write persists the blob, replacing any prior content. The write goes
// through a temp file and rename so a crash cannot leave a half-written slot.
func (f *FileSlot) Write(blob *types.PendingBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return errors.NewSlotError("failed to encode pending blob", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.NewSlotError("failed to write session slot", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.NewSlotError("failed to replace session slot", err)
	}
	return nil
}

// Read returns the persisted blob, or nil if the slot is empty. A blob that
// cannot be decoded is reported as corrupt; the caller discards it.
func (f *FileSlot) Read() (*types.PendingBlob, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewSlotError("failed to read session slot", err)
	}

	var blob types.PendingBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, errors.NewSlotCorruptedError(err)
	}
	if err := blob.Validate(); err != nil {
		return nil, errors.NewSlotCorruptedError(err)
	}
	return &blob, nil
}

// Clear erases the slot
func (f *FileSlot) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.NewSlotError("failed to clear session slot", err)
	}
	return nil
}

// Close releases the backing store
func (f *FileSlot) Close() error {
	return nil
}
