package controllers

import (
	"net/http"

	"github.com/prosupplyhq/prosupply-backend/api/responses"
	"github.com/prosupplyhq/prosupply-backend/api/validators"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// ChainStoreCreate registers a delivery destination. Admins may target
// another purchaser via the purchaser_id query parameter.
func ChainStoreCreate(svc purchasers.ChainStoreService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "chain store service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchasers.CreateChainStoreInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.PurchaserID, err = validators.ParseQueryUUID(r, "purchaser_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, store)
	}
}

func ChainStoreFetch(svc purchasers.ChainStoreService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "chain store service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "chainStoreID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, store)
	}
}

// ChainStoreList returns the actor's destinations; admins may scope to
// a purchaser via the purchaser_id query parameter.
func ChainStoreList(svc purchasers.ChainStoreService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "chain store service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchaserID, err := validators.ParseQueryUUID(r, "purchaser_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stores, err := svc.List(r.Context(), actor, purchaserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"chain_stores": stores})
	}
}

func ChainStoreUpdate(svc purchasers.ChainStoreService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "chain store service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "chainStoreID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchasers.UpdateChainStoreInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Update(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, store)
	}
}

func ChainStoreDelete(svc purchasers.ChainStoreService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "chain store service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "chainStoreID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
