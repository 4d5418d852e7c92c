package importer

import (
	"time"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

// ImportJobDTO is the transport shape for one catalog import job.
type ImportJobDTO struct {
	ID                uuid.UUID             `json:"id"`
	Status            enums.ImportJobStatus `json:"status"`
	SourceURL         string                `json:"source_url"`
	Detail            *string               `json:"detail,omitempty"`
	CategoriesApplied int                   `json:"categories_applied"`
	StocksApplied     int                   `json:"stocks_applied"`
	SubmittedBy       uuid.UUID             `json:"submitted_by"`
	StartedAt         *time.Time            `json:"started_at,omitempty"`
	FinishedAt        *time.Time            `json:"finished_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func ImportJobFromModel(j *models.ImportJob) *ImportJobDTO {
	if j == nil {
		return nil
	}
	return &ImportJobDTO{
		ID:                j.ID,
		Status:            j.Status,
		SourceURL:         j.SourceURL,
		Detail:            j.Detail,
		CategoriesApplied: j.CategoriesApplied,
		StocksApplied:     j.StocksApplied,
		SubmittedBy:       j.SubmittedBy,
		StartedAt:         j.StartedAt,
		FinishedAt:        j.FinishedAt,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
	}
}

// SubmitImportInput holds the payload for queueing a catalog import.
type SubmitImportInput struct {
	URL string `json:"url" validate:"required"`
}

// catalogDocument is the fetched YAML shape. Price fields stay strings
// until validation so a malformed number fails the job with a detail
// naming the offending good instead of a bare decode error.
type catalogDocument struct {
	Shop       string             `yaml:"shop"`
	Categories []documentCategory `yaml:"categories"`
	Goods      []documentGood     `yaml:"goods"`
}

type documentCategory struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type documentGood struct {
	ID         string            `yaml:"id"`
	Category   int               `yaml:"category"`
	Model      string            `yaml:"model"`
	Name       string            `yaml:"name"`
	Shop       string            `yaml:"shop"`
	Price      string            `yaml:"price"`
	PriceRRC   string            `yaml:"price_rrc"`
	Quantity   int               `yaml:"quantity"`
	Parameters map[string]string `yaml:"parameters"`
}
