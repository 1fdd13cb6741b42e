package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shortlink-backend/internal/auth"
	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"
	"shortlink-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	maxRequestBody = 64 << 10
	maxStatsDays   = 365
)

// LinksHandler обработчик для работы со ссылками
type LinksHandler struct {
	shortener *service.URLShortenerService
	links     *service.LinkService
	validate  *validator.Validate
	log       *zap.Logger
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(shortener *service.URLShortenerService, links *service.LinkService, log *zap.Logger) *LinksHandler {
	return &LinksHandler{
		shortener: shortener,
		links:     links,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log.With(zap.String("component", "links_handler")),
	}
}

// CreateLinkRequest структура запроса создания ссылки
type CreateLinkRequest struct {
	URL         string  `json:"url" example:"https://example.com/some/long/path"`
	Custom      string  `json:"custom,omitempty" example:"my-link"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateLinkRequest структура запроса изменения ссылки
type UpdateLinkRequest struct {
	IsActive    *bool   `json:"is_active,omitempty"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// LinkResponse представление ссылки в API
type LinkResponse struct {
	Link        string    `json:"link" example:"http://localhost:8080/aB3dE5fG"`
	ShortCode   string    `json:"short_code" example:"aB3dE5fG"`
	OriginalURL string    `json:"original_url"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListLinksResponse структура ответа списка ссылок
type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

// StatsResponse аналитика ссылки
type StatsResponse struct {
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	Days        int    `json:"days"`
	*domain.LinkStats
}

// ErrorsResponse ошибки по полям запроса
type ErrorsResponse struct {
	Errors map[string]string `json:"errors"`
}

// CreateLink создает новую короткую ссылку
//
//	@Summary		Create a short link
//	@Description	Shortens a URL. Anonymous requests are allowed; a bearer token makes the caller the owner. Without a custom code an existing link to the same URL is returned with 200.
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateLinkRequest	true	"Link creation request"
//	@Success		201		{object}	LinkResponse		"Link created"
//	@Success		200		{object}	LinkResponse		"Existing link reused"
//	@Failure		400		{object}	map[string]string	"Malformed JSON"
//	@Failure		409		{object}	ErrorsResponse		"Custom code already taken"
//	@Failure		422		{object}	ErrorsResponse		"Validation failed"
//	@Failure		500		{object}	map[string]string	"Could not allocate a code"
//	@Router			/api/shorten [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log.Debug("invalid create link request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	input := service.CreateLinkInput{
		URL:         req.URL,
		Custom:      req.Custom,
		Title:       req.Title,
		Description: req.Description,
	}
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		input.OwnerID = &userID
	}

	res, err := h.shortener.Shorten(r.Context(), input)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, ErrorsResponse{Errors: verr.Fields}, http.StatusUnprocessableEntity)
		case errors.Is(err, service.ErrCustomCodeTaken):
			writeJSON(w, ErrorsResponse{Errors: map[string]string{"custom": service.MsgCustomTaken}}, http.StatusConflict)
		case errors.Is(err, service.ErrGenerationExhausted):
			h.log.Error("short code space exhausted", zap.Error(err))
			writeError(w, "Could not generate a short link, please try again", http.StatusInternalServerError)
		default:
			h.log.Error("failed to create link", zap.Error(err))
			writeError(w, "Failed to create link", http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		h.log.Info("created link",
			zap.String("short_code", res.Link.ShortCode),
			zap.Bool("custom", req.Custom != ""),
			zap.Bool("anonymous", input.OwnerID == nil),
		)
	}
	writeJSON(w, h.toResponse(res.Link), status)
}

// ListLinks возвращает список ссылок пользователя
//
//	@Summary		List own links
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListLinksResponse
//	@Failure		401	{object}	map[string]string	"Authentication required"
//	@Router			/api/links [get]
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	links, err := h.links.ListLinks(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list user links", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to retrieve links", http.StatusInternalServerError)
		return
	}

	response := ListLinksResponse{Links: make([]LinkResponse, len(links))}
	for i, link := range links {
		response.Links[i] = h.toResponse(link)
	}
	writeJSON(w, response, http.StatusOK)
}

// UpdateLink включает/выключает ссылку и меняет ее описание
//
//	@Summary		Update a link
//	@Description	Toggles activation and edits title or description. Owner only.
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			code	path		string				true	"Short code"
//	@Param			request	body		UpdateLinkRequest	true	"Fields to change"
//	@Success		200		{object}	LinkResponse
//	@Failure		400		{object}	map[string]string	"Malformed or empty request"
//	@Failure		403		{object}	map[string]string	"Access denied"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Failure		422		{object}	ErrorsResponse		"Validation failed"
//	@Router			/api/links/{code} [patch]
func (h *LinksHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}
	code := chi.URLParam(r, "code")

	var req UpdateLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.IsActive == nil && req.Title == nil && req.Description == nil {
		writeError(w, "Nothing to update", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, ErrorsResponse{Errors: updateErrors(err)}, http.StatusUnprocessableEntity)
		return
	}

	link, err := h.links.UpdateLink(r.Context(), userID, code, repository.LinkUpdate{
		IsActive:    req.IsActive,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.writeLinkError(w, code, err)
		return
	}
	writeJSON(w, h.toResponse(link), http.StatusOK)
}

// GetStats возвращает статистику по ссылке
//
//	@Summary		Link analytics
//	@Description	Click totals from the event log, the advisory counter, a daily series and breakdowns by country, device, browser, OS and referrer type.
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			code	path		string	true	"Short code"
//	@Param			days	query		int		false	"Days in the daily series (1-365, default 30)"
//	@Success		200		{object}	StatsResponse
//	@Failure		400		{object}	map[string]string	"Invalid days"
//	@Failure		403		{object}	map[string]string	"Access denied"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Router			/api/links/{code}/stats [get]
func (h *LinksHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}
	code := chi.URLParam(r, "code")

	days := service.DefaultStatsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsDays {
			writeError(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		days = n
	}

	link, stats, err := h.links.Stats(r.Context(), userID, code, days)
	if err != nil {
		h.writeLinkError(w, code, err)
		return
	}

	writeJSON(w, StatsResponse{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Days:        days,
		LinkStats:   stats,
	}, http.StatusOK)
}

func (h *LinksHandler) writeLinkError(w http.ResponseWriter, code string, err error) {
	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		writeError(w, "Link not found", http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, "Access denied", http.StatusForbidden)
	default:
		h.log.Error("link operation failed", zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *LinksHandler) toResponse(link *domain.Link) LinkResponse {
	return LinkResponse{
		Link:        h.shortener.ShortURL(link.ShortCode),
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		Description: link.Description,
		IsActive:    link.IsActive,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
	}
}

func updateErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["request"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Title":
			fields["title"] = service.MsgTitleTooLong
		case "Description":
			fields["description"] = service.MsgDescTooLong
		}
	}
	return fields
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
