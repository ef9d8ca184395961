package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one committed registry operation. The journal is written strictly
// after commit and no core read path depends on it; it exists as an audit
// trail only.
type Entry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Operation string         `gorm:"not null;index" json:"operation"`
	Actor     string         `gorm:"not null;index" json:"actor"`
	TokenID   *uint64        `gorm:"index" json:"token_id,omitempty"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Entry) TableName() string {
	return "registry_journal"
}

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Recorder appends committed operations somewhere durable.
type Recorder interface {
	Record(ctx context.Context, op, actor string, tokenID *uint64, payload map[string]interface{}) error
}

type gormRecorder struct {
	db *gorm.DB
}

// NewRecorder returns a postgres-backed recorder, migrating the journal
// table on first use.
func NewRecorder(db *gorm.DB) (Recorder, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &gormRecorder{db: db}, nil
}

func (r *gormRecorder) Record(ctx context.Context, op, actor string, tokenID *uint64, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	entry := &Entry{
		Operation: op,
		Actor:     actor,
		TokenID:   tokenID,
		Payload:   datatypes.JSON(raw),
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

type noopRecorder struct{}

// NewNoopRecorder stands in when no database is configured.
func NewNoopRecorder() Recorder {
	return noopRecorder{}
}

func (noopRecorder) Record(context.Context, string, string, *uint64, map[string]interface{}) error {
	return nil
}
