package handlers

import (
	"encoding/json"
	"net/http"

	"menulens/internal/infra"
	"menulens/internal/middleware"
	"menulens/internal/pipeline"
	"menulens/internal/progress"
	"menulens/internal/storage"
	"menulens/internal/vision"
)

// App carries the dependencies handlers need. Everything is built once
// in cmd/api and injected.
type App struct {
	SQL       infra.SQLExecutor
	Objects   storage.ObjectStore
	Extractor vision.Extractor
	Resolver  *pipeline.Resolver
	Tracker   *progress.Tracker
	Config    *infra.Config
	Logger    infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, code int, slug, msg string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{
			"code":       slug,
			"message":    msg,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		},
	})
}
