// Package session provides the durable slot that lets a pending bulk
// deletion survive a process restart.
package session

import (
	"fmt"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/interfaces"
)

// BackendType represents the available session slot backends
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

// NewSlot creates a session slot for the configured backend
func NewSlot(cfg *config.SessionConfig, log interfaces.Logger) (interfaces.SessionSlot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	log.Info("Creating session slot", map[string]interface{}{"backend": cfg.Backend})

	switch BackendType(cfg.Backend) {
	case FileBackend:
		return NewFileSlot(cfg.Path)
	case SQLiteBackend:
		return NewSQLiteSlot(cfg.Path)
	case RedisBackend:
		return NewRedisSlot(cfg.RedisAddr, cfg.RedisKey, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}
