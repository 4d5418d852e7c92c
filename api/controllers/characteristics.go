package controllers

import (
	"net/http"

	"github.com/prosupplyhq/prosupply-backend/api/responses"
	"github.com/prosupplyhq/prosupply-backend/api/validators"
	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// CharacteristicCreate registers an attribute type, admin only at the
// service level.
func CharacteristicCreate(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
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

		var body catalog.CharacteristicInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		characteristic, err := svc.CreateCharacteristic(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, characteristic)
	}
}

func CharacteristicFetch(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
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

		id, err := pathID(r, "characteristicID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		characteristic, err := svc.GetCharacteristic(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, characteristic)
	}
}

func CharacteristicList(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
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

		characteristics, err := svc.ListCharacteristics(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"characteristics": characteristics})
	}
}

func CharacteristicUpdate(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
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

		id, err := pathID(r, "characteristicID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body catalog.CharacteristicInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		characteristic, err := svc.UpdateCharacteristic(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, characteristic)
	}
}

func CharacteristicDelete(svc catalog.ReferenceService, logg *logger.Logger) http.HandlerFunc {
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

		id, err := pathID(r, "characteristicID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCharacteristic(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
