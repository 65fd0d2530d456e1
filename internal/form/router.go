package form

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tourismprj/internal/logger"
)

// NewRouter wires the page, the JSON API and the health endpoints. metrics
// may be nil.
func NewRouter(h *Handler, metrics http.Handler) http.Handler {
	if h.Log == nil {
		h.Log = logger.NewNop()
	}
	if h.States == nil {
		h.States = NewMemoryStateStore(0, 0)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.Index)
	r.Post("/predict", h.Predict)

	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", h.APIPredict)
		r.Get("/predictions", h.RecentPredictions)
	})

	r.Get("/healthz", h.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
