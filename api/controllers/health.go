package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/prosupplyhq/prosupply-backend/api/responses"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
	"github.com/prosupplyhq/prosupply-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ProSupply-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing store answers a
// ping within the readiness timeout.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	type check struct {
		name string
		ping func(context.Context) error
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ProSupply-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make([]check, 0, 2)
		if dbP != nil {
			checks = append(checks, check{name: "database", ping: dbP.Ping})
		}
		if redisP != nil {
			checks = append(checks, check{name: "redis", ping: redisP.Ping})
		}

		for _, c := range checks {
			if err := c.ping(ctx); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable").
					WithDetails(map[string]any{"dependency": c.name})
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
