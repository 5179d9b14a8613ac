package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/verdano/trackly/internal/config"
)

// connectTimeout bounds the startup connection check. The service cannot
// serve any authenticated route without the store, so callers treat a
// timeout here as fatal.
const connectTimeout = 5 * time.Second

// BaseModel is the embedded base for all persisted models
type BaseModel struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// BeforeCreate assigns a UUID primary key if one was not set
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Handle owns the database connection lifecycle. Connect and Disconnect
// are idempotent so double-invocation during startup/shutdown is harmless.
type Handle struct {
	mu sync.Mutex
	db *gorm.DB
}

// NewHandle creates an unconnected Handle
func NewHandle() *Handle {
	return &Handle{}
}

// Connect opens the database connection and verifies it with a bounded
// ping. Calling Connect on an already-connected handle returns the
// existing connection.
func (h *Handle) Connect(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db != nil {
		return h.db, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	h.db = db
	return db, nil
}

// Disconnect closes the connection. Safe to call on an unconnected or
// already-disconnected handle.
func (h *Handle) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return nil
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	h.db = nil
	return sqlDB.Close()
}
