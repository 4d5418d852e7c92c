package controllers

import (
	"net/http"

	"github.com/prosupplyhq/prosupply-backend/api/responses"
	"github.com/prosupplyhq/prosupply-backend/api/validators"
	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// CategoryCreate adds a category to the shared reference catalog.
func CategoryCreate(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "reference service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body catalog.CreateCategoryInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.CreateCategory(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func CategoryFetch(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "reference service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.GetCategory(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, category)
	}
}

func CategoryList(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "reference service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categories, err := svc.ListCategories(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

func CategoryUpdate(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "reference service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body catalog.UpdateCategoryInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.UpdateCategory(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, category)
	}
}

func CategoryDelete(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "reference service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCategory(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
