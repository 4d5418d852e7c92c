package importer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
)

type supplierFinder interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Supplier, error)
}

type jobQueue interface {
	QueuePush(ctx context.Context, key string, values ...any) error
}

// Service exposes the submit/poll half of the catalog import pipeline.
// The heavy lifting happens in the worker; Submit only records the job
// and hands its id to the queue.
type Service interface {
	Submit(ctx context.Context, actor authz.Actor, input SubmitImportInput) (*ImportJobDTO, error)
	Status(ctx context.Context, actor authz.Actor, jobID uuid.UUID) (*ImportJobDTO, error)
}

type service struct {
	repo      *Repository
	suppliers supplierFinder
	queue     jobQueue
	queueKey  string
	now       func() time.Time
}

// NewService constructs an import submission service.
func NewService(repo *Repository, suppliers supplierFinder, queue jobQueue, cfg config.ImportConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("import job repository required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if queue == nil {
		return nil, fmt.Errorf("job queue required")
	}
	if strings.TrimSpace(cfg.QueueKey) == "" {
		return nil, fmt.Errorf("import queue key required")
	}
	return &service{
		repo:      repo,
		suppliers: suppliers,
		queue:     queue,
		queueKey:  cfg.QueueKey,
		now:       time.Now,
	}, nil
}

func (s *service) Submit(ctx context.Context, actor authz.Actor, input SubmitImportInput) (*ImportJobDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceImportJob) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}

	source := strings.TrimSpace(input.URL)
	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source url must be http or https")
	}

	// Suppliers import for themselves; the job pins their user so the
	// worker resolves their profile regardless of the document's shop.
	// Admin jobs stay unscoped and rely on the shop name instead.
	var actingUserID *uuid.UUID
	if actor.Role == enums.UserRoleSupplier {
		if _, err := s.suppliers.FindByUser(ctx, actor.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "supplier profile required")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier profile")
		}
		userID := actor.UserID
		actingUserID = &userID
	}

	job, err := s.repo.Create(ctx, &models.ImportJob{
		SubmittedBy:  actor.UserID,
		ActingUserID: actingUserID,
		SourceURL:    source,
		Status:       enums.ImportJobStatusQueued,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert import job")
	}

	if err := s.queue.QueuePush(ctx, s.queueKey, job.ID.String()); err != nil {
		// The row exists but no worker will ever see it; park it so a
		// status poll does not report queued forever.
		_ = s.repo.MarkFailed(ctx, job.ID, "job queue unavailable", s.now().UTC())
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue import job")
	}
	return ImportJobFromModel(job), nil
}

func (s *service) Status(ctx context.Context, actor authz.Actor, jobID uuid.UUID) (*ImportJobDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceImportJob) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	job, err := s.repo.FindScoped(ctx, authz.ImportJobScope(actor), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load import job")
	}
	return ImportJobFromModel(job), nil
}
