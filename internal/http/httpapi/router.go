package httpapi

import (
	"net/http"
	"strings"
	"time"

	"menulens/internal/http/handlers"
	"menulens/internal/metrics"
	"menulens/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface: menu endpoints under /v1,
// operational endpoints at the root, and static file serving for the
// local object store.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(splitOrigins(app.Config.AllowedOrigins)),
		middleware.I18N("en", lookup),
	)

	r.Get("/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/docs", app.OpenAPIDocs)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)

	r.Route("/v1/menus", func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
		r.Post("/", app.MenusUpload)
		r.Route("/{menu_id}", func(r chi.Router) {
			r.Get("/", app.MenusGet)
			r.Get("/progress", app.MenusProgress)
			r.Get("/events", app.MenusEvents)
			r.Get("/export", app.MenusExport)
		})
	})

	if app.Config.StoragePath != "" {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Config.StoragePath)))
		r.Handle("/static/*", fileServer)
	}

	return r
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
