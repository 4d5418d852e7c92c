package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/api/middleware"
	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
)

// requestActor rebuilds the authenticated actor from the context seeded
// by the auth middleware.
func requestActor(r *http.Request) (authz.Actor, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return authz.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return authz.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return authz.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return authz.Actor{UserID: userID, Role: role}, nil
}

func pathID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "id must be a UUID")
	}
	return id, nil
}
