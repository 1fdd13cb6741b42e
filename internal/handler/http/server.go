package http

import (
	"net/http"

	"shortlink-backend/internal/auth"
	"shortlink-backend/pkg/metrics"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Server HTTP сервер с обработчиками
type Server struct {
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	log             *zap.Logger
}

// NewServer собирает HTTP слой из готовых обработчиков
func NewServer(
	linksHandler *LinksHandler,
	redirectHandler *RedirectHandler,
	healthHandler *HealthHandler,
	authMiddleware *auth.Middleware,
	log *zap.Logger,
) *Server {
	return &Server{
		linksHandler:    linksHandler,
		redirectHandler: redirectHandler,
		healthHandler:   healthHandler,
		authMiddleware:  authMiddleware,
		log:             log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer(s.log))
	r.Use(RequestLogger(s.log))

	// служебные endpoints
	r.Get("/health", s.healthHandler.Health)
	r.Get("/ready", s.healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware.CORS)

		// анонимное создание разрешено, токен делает пользователя владельцем
		r.With(s.authMiddleware.OptionalAuth).Post("/shorten", s.linksHandler.CreateLink)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.RequireAuth)
			r.Get("/links", s.linksHandler.ListLinks)
			r.Patch("/links/{code}", s.linksHandler.UpdateLink)
			r.Get("/links/{code}/stats", s.linksHandler.GetStats)
		})
	})

	// страница "не найдено" зарезервирована и не должна снова уходить в редирект
	if p := s.redirectHandler.localNotFoundPath(); p != "" {
		r.Get(p, s.redirectHandler.HandleNotFound)
	}

	// редирект по короткому коду; системные пути выше имеют приоритет
	r.Get("/{code}", s.redirectHandler.HandleRedirect)

	return r
}
