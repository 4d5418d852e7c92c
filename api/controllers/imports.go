package controllers

import (
	"net/http"

	"github.com/prosupplyhq/prosupply-backend/api/responses"
	"github.com/prosupplyhq/prosupply-backend/api/validators"
	"github.com/prosupplyhq/prosupply-backend/internal/importer"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// ImportSubmit enqueues a catalogue import for the caller's supplier.
// The job runs asynchronously; the response carries the job record to
// poll.
func ImportSubmit(svc importer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body importer.SubmitImportInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Submit(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, job)
	}
}

// ImportStatus returns the current state of an import job.
func ImportStatus(svc importer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "jobID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Status(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, job)
	}
}
