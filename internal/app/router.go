package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input means any origin.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(middleware.RealIP)
	r.Use(httpserver.TimeoutMiddleware(60 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Credential endpoints are the brute-force surface; rate limit by IP.
	r.Group(func(ar chi.Router) {
		ar.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		ar.Post("/v1/auth/register", srv.RegisterHandler())
		ar.Post("/v1/auth/login", srv.LoginHandler())
	})

	r.Group(func(pr chi.Router) {
		pr.Use(srv.RequireAuth)

		pr.Get("/v1/auth/me", srv.MeHandler())

		// Upload and answer submission carry files; tighter per-IP limit.
		pr.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			wr.Post("/v1/resumes", srv.ResumeUploadHandler())
			wr.Post("/v1/interviews/{id}/answers", srv.AnswerHandler())
		})

		pr.Get("/v1/resumes", srv.ResumeListHandler())
		pr.Get("/v1/resumes/{id}", srv.ResumeGetHandler())
		pr.Delete("/v1/resumes/{id}", srv.ResumeDeleteHandler())

		pr.Post("/v1/interviews", srv.InterviewCreateHandler())
		pr.Get("/v1/interviews", srv.InterviewListHandler())
		pr.Get("/v1/interviews/{id}", srv.InterviewGetHandler())
		pr.Get("/v1/interviews/{id}/current-question", srv.CurrentQuestionHandler())
		pr.Post("/v1/interviews/{id}/start", srv.InterviewStartHandler())
		pr.Get("/v1/interviews/{id}/summary", srv.SummaryHandler())
		pr.Post("/v1/interviews/{id}/report", srv.ReportGenerateHandler())
		pr.Get("/v1/interviews/{id}/report", srv.ReportGetHandler())

		pr.Get("/v1/responses/{id}", srv.ResponseGetHandler())
	})

	// Health and metrics
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
