package controllers

import (
	"net/http"

	"github.com/prosupplyhq/prosupply-backend/api/responses"
	"github.com/prosupplyhq/prosupply-backend/api/validators"
	cartsvc "github.com/prosupplyhq/prosupply-backend/internal/cart"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// CartFetch returns the actor's cart with line totals and rollups.
// Admins may inspect another purchaser's cart via the purchaser_id
// query parameter.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
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

		cart, err := svc.Get(r.Context(), actor, purchaserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cart)
	}
}

// CartPositionAdd puts a stock line into the cart, snapshotting the
// current price.
func CartPositionAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartsvc.AddPositionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.PurchaserID, err = validators.ParseQueryUUID(r, "purchaser_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		position, err := svc.Add(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, position)
	}
}

// CartPositionUpdate replaces a line's quantity.
func CartPositionUpdate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "positionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartsvc.UpdatePositionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		position, err := svc.UpdatePosition(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, position)
	}
}

// CartPositionRemove drops one line from the cart.
func CartPositionRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "positionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemovePosition(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CartClear empties the cart in one call.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
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

		if err := svc.Clear(r.Context(), actor, purchaserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
