package http

import (
	"errors"
	"net/http"
	"strings"

	"shortlink-backend/internal/analytics"
	"shortlink-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ClickSubmitter принимает клик в асинхронную запись
type ClickSubmitter interface {
	Submit(linkID string, event *analytics.Event) error
}

// RedirectHandler обработчик редиректов
type RedirectHandler struct {
	resolver     *service.Resolver
	extractor    *analytics.Extractor
	clicks       ClickSubmitter
	homePath     string
	notFoundPath string
	log          *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(
	resolver *service.Resolver,
	extractor *analytics.Extractor,
	clicks ClickSubmitter,
	homePath, notFoundPath string,
	log *zap.Logger,
) *RedirectHandler {
	if homePath == "" {
		homePath = "/"
	}
	if notFoundPath == "" {
		notFoundPath = "/not-found"
	}
	return &RedirectHandler{
		resolver:     resolver,
		extractor:    extractor,
		clicks:       clicks,
		homePath:     homePath,
		notFoundPath: notFoundPath,
		log:          log.With(zap.String("component", "redirect")),
	}
}

// HandleRedirect обрабатывает GET /{code}
//
//	@Summary		Follow a short link
//	@Description	Redirects to the destination of an active short link. Reserved paths go to the home page, unknown or inactive codes to the not-found page.
//	@Tags			Redirect
//	@Param			code	path	string	true	"Short code"
//	@Success		302		"Redirect to the destination URL"
//	@Success		307		"Redirect to the home or not-found page"
//	@Router			/{code} [get]
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	// данные запроса снимаются до обращения к хранилищу
	event := h.extractor.Extract(r, code)

	link, outcome := h.resolver.Resolve(r.Context(), code)

	w.Header().Set("Cache-Control", "no-store")

	switch outcome {
	case service.OutcomeShortCircuit:
		http.Redirect(w, r, h.homePath, http.StatusTemporaryRedirect)
	case service.OutcomeNotFound:
		h.log.Debug("short code not found", zap.String("short_code", code))
		http.Redirect(w, r, h.notFoundPath, http.StatusTemporaryRedirect)
	case service.OutcomeResolved:
		if err := h.clicks.Submit(link.ID, event); err != nil && !errors.Is(err, analytics.ErrQueueFull) {
			// переполнение уже залогировано процессором
			h.log.Warn("click not submitted", zap.String("short_code", code), zap.Error(err))
		}
		http.Redirect(w, r, link.OriginalURL, http.StatusFound)
	}
}

// HandleNotFound отвечает на путь страницы "не найдено", если ее не обслуживает фронтенд
//
//	@Summary	Short link not found
//	@Tags		Redirect
//	@Produce	json
//	@Failure	404	{object}	map[string]string
//	@Router		/not-found [get]
func (h *RedirectHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeError(w, "Short link not found", http.StatusNotFound)
}

// localNotFoundPath возвращает путь для HandleNotFound; пусто, если страница внешняя
func (h *RedirectHandler) localNotFoundPath() string {
	p := h.notFoundPath
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || p == "/" || p == h.homePath {
		return ""
	}
	return p
}
