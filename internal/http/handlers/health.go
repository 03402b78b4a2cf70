package handlers

import (
	"context"
	"net/http"
	"time"

	"menulens/internal/sqlinline"
)

// Health reports liveness plus a best-effort database ping. A failing ping
// marks the database unhealthy; the endpoint itself always answers 200.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	if a.SQL != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		var one int
		if err := a.SQL.QueryRow(ctx, sqlinline.QHealthPing).Scan(&one); err != nil {
			dbStatus = "unhealthy"
		}
	}

	status := "healthy"
	if dbStatus != "healthy" {
		status = "degraded"
	}
	a.json(w, http.StatusOK, map[string]any{
		"status": status,
		"services": map[string]string{
			"api":      "healthy",
			"database": dbStatus,
		},
	})
}
