package routing

import (
	"net/http"

	"github.com/Amine830/ReadSphere-sub000/internal/handlers"
	"github.com/Amine830/ReadSphere-sub000/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Logger   zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Reporting and comment lifecycle
	mux.HandleFunc("POST /api/comments/{id}/report", h.HandleReportComment)
	mux.HandleFunc("DELETE /api/comments/{id}", h.HandleCommentDelete)
	mux.HandleFunc("PUT /api/comments/{id}", h.HandleCommentUpdate)

	// Books and their comment listings
	mux.HandleFunc("GET /api/books/{id}/comments", h.HandleBookComments)
	mux.HandleFunc("DELETE /api/books/{id}", h.HandleBookDelete)
	mux.HandleFunc("POST /api/books/{id}/restore", h.HandleBookRestore)

	// Notification inbox
	mux.HandleFunc("GET /api/notifications", h.HandleNotifications)
	mux.HandleFunc("POST /api/notifications/read", h.HandleNotificationsRead)

	// Moderation dashboard
	mux.HandleFunc("GET /_mod/reports", h.HandleListReports)
	mux.HandleFunc("POST /_mod/reports/{id}/resolve", h.HandleResolveReport)
	mux.HandleFunc("POST /_mod/reports/{id}/reject", h.HandleRejectReport)
	mux.HandleFunc("GET /_mod/audit", h.HandleAuditLog)
	mux.HandleFunc("POST /_mod/actions", h.HandleLogAction)
	mux.HandleFunc("GET /_mod/stats", h.HandleAdminStats)

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.HandleHealthz)

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Resolve the actor identity header
	handler = middleware.ActorMiddleware(handler)

	// 2. Trace spans around every request
	handler = otelhttp.NewHandler(handler, "http.server")

	// 3. Apply logging middleware (outermost - wraps everything)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	return handler
}
