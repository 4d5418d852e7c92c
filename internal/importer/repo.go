package importer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

// Repository handles import job persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to import job operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new import job row.
func (r *Repository) Create(ctx context.Context, job *models.ImportJob) (*models.ImportJob, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// FindByID loads a job by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindScoped loads a job the actor's scope can reach.
func (r *Repository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.WithContext(ctx).Scopes(scope).First(&job, "import_jobs.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkRunning stamps the job as picked up by a worker.
func (r *Repository) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.ImportJobStatusRunning,
			"started_at": startedAt,
		}).Error
}

// MarkSucceeded finishes the job recording how much it applied.
func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID, categories, stocks int, finishedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":             enums.ImportJobStatusSucceeded,
			"categories_applied": categories,
			"stocks_applied":     stocks,
			"detail":             nil,
			"finished_at":        finishedAt,
		}).Error
}

// MarkFailed parks the job with a human-readable reason.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, detail string, finishedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.ImportJobStatusFailed,
			"detail":      detail,
			"finished_at": finishedAt,
		}).Error
}
