package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

// ImportJob records one catalog import through the submit/poll cycle.
// SubmittedBy scopes who may poll it; ActingUserID, when set, binds the
// document's shop to that user's supplier.
type ImportJob struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubmittedBy       uuid.UUID             `gorm:"column:submitted_by;type:uuid;not null;index"`
	ActingUserID      *uuid.UUID            `gorm:"column:acting_user_id;type:uuid"`
	SourceURL         string                `gorm:"column:source_url;not null"`
	Status            enums.ImportJobStatus `gorm:"column:status;type:import_job_status;not null;default:'queued'"`
	Detail            *string               `gorm:"column:detail"`
	CategoriesApplied int                   `gorm:"column:categories_applied;not null;default:0"`
	StocksApplied     int                   `gorm:"column:stocks_applied;not null;default:0"`
	StartedAt         *time.Time            `gorm:"column:started_at"`
	FinishedAt        *time.Time            `gorm:"column:finished_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
