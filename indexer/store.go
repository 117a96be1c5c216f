// Package indexer keeps a queryable, relational copy of committed ledger
// events.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"launchpad/core/events"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultListLimit = 100
	maxListLimit     = 1000
)

// Event is one indexed ledger event.
type Event struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence   uint64    `gorm:"uniqueIndex;not null"`
	Type       string    `gorm:"size:64;index"`
	ProjectID  *uint64   `gorm:"index"`
	SaleID     *uint64   `gorm:"index"`
	Account    string    `gorm:"size:42;index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time
}

// Attrs decodes the stored attribute set.
func (e *Event) Attrs() (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(e.Attributes) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(e.Attributes), &out); err != nil {
		return nil, fmt.Errorf("indexer: decode attributes: %w", err)
	}
	return out, nil
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Type      string
	ProjectID *uint64
	SaleID    *uint64
	Account   string
	After     uint64
	Limit     int
}

// Store persists events through gorm.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger

	mu  sync.Mutex
	seq uint64
}

// AutoMigrate performs the schema migrations of the index.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Event{})
}

// Open connects to the index database and migrates it.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing connection.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	var last uint64
	if err := db.Model(&Event{}).Select("COALESCE(MAX(sequence), 0)").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("indexer: load sequence: %w", err)
	}
	return &Store{db: db, logger: slog.Default(), seq: last}, nil
}

// SetLogger sets the logger used when Emit cannot persist an event.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func parseID(attrs map[string]string, key string) *uint64 {
	raw, ok := attrs[key]
	if !ok {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func accountOf(attrs map[string]string) string {
	for _, key := range []string{"buyer", "manager", "account", "to"} {
		if v := attrs[key]; v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// Record stores evt under the next sequence number.
func (s *Store) Record(evt events.Event) (*Event, error) {
	if evt == nil {
		return nil, errors.New("indexer: nil event")
	}
	var attrs map[string]string
	if payload, ok := evt.(events.Payload); ok && payload.Event() != nil {
		attrs = payload.Event().Attributes
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("indexer: encode attributes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row := &Event{
		ID:         uuid.New(),
		Sequence:   s.seq + 1,
		Type:       evt.EventType(),
		ProjectID:  parseID(attrs, "projectId"),
		SaleID:     parseID(attrs, "saleId"),
		Account:    accountOf(attrs),
		Attributes: string(encoded),
	}
	if err := s.db.Create(row).Error; err != nil {
		return nil, fmt.Errorf("indexer: insert: %w", err)
	}
	s.seq = row.Sequence
	return row, nil
}

// Emit implements events.Emitter. Failures are logged; the ledger has
// already committed the event.
func (s *Store) Emit(evt events.Event) {
	if _, err := s.Record(evt); err != nil {
		s.logger.Error("index event", slog.String("type", evt.EventType()), slog.Any("error", err))
	}
}

// List returns events matching f in sequence order.
func (s *Store) List(f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	q := s.db.Model(&Event{}).Where("sequence > ?", f.After)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.SaleID != nil {
		q = q.Where("sale_id = ?", *f.SaleID)
	}
	if f.Account != "" {
		q = q.Where("account = ?", strings.ToLower(f.Account))
	}
	var out []Event
	if err := q.Order("sequence ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("indexer: list: %w", err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
