// Package storage persists generation history and export audit records.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// GenerationRecord is one stored generation run: the input requirements and
// the stories produced from them.
type GenerationRecord struct {
	ID           string               `json:"id"`
	Requirements string               `json:"requirements"`
	Stories      []domain.StoryRecord `json:"stories"`
	Model        string               `json:"model"`
	StoryCount   int                  `json:"story_count"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ExportRecord is one stored export run against the tracker
type ExportRecord struct {
	ID         string              `json:"id"`
	ProjectKey string              `json:"project_key"`
	GroupKey   string              `json:"group_key,omitempty"`
	Status     domain.ExportStatus `json:"status"`
	Outcomes   []domain.Outcome    `json:"outcomes"`
	Exported   int                 `json:"total_exported"`
	Failed     int                 `json:"total_failed"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Stats summarizes stored history
type Stats struct {
	TotalGenerations int `json:"total_generations"`
	TotalStories     int `json:"total_stories"`
	TotalExports     int `json:"total_exports"`
}

// Storage is the persistence contract for history and audit records
type Storage interface {
	SaveGeneration(ctx context.Context, rec *GenerationRecord) error
	GetGeneration(ctx context.Context, id string) (*GenerationRecord, error)
	ListGenerations(ctx context.Context, offset, limit int) ([]*GenerationRecord, error)
	CountGenerations(ctx context.Context) (int, error)
	DeleteGeneration(ctx context.Context, id string) error

	SaveExport(ctx context.Context, rec *ExportRecord) error
	ListExports(ctx context.Context, limit int) ([]*ExportRecord, error)

	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
