package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"shortlink-backend/internal/config"
	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"
	"shortlink-backend/internal/shortcode"
	"shortlink-backend/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	// ErrCustomCodeTaken запрошенный пользователем код уже занят
	ErrCustomCodeTaken = errors.New("custom code is already taken")
	// ErrGenerationExhausted не удалось подобрать свободный код
	ErrGenerationExhausted = shortcode.ErrGenerationExhausted
)

// Сообщения об ошибках полей, отдаются клиенту как есть
const (
	MsgURLRequired      = "URL is required"
	MsgURLInvalid       = "Enter a valid http or https URL"
	MsgURLTooLong       = "URL is too long"
	MsgURLSelf          = "Links to this service cannot be shortened"
	MsgCustomLength     = "Custom URL must be between 6 and 20 characters"
	MsgCustomCharacters = "Custom URL may only contain letters, numbers, hyphens and underscores"
	MsgCustomReserved   = "This custom URL is reserved"
	MsgCustomTaken      = "Custom URL is already taken"
	MsgTitleTooLong     = "Title is too long"
	MsgDescTooLong      = "Description is too long"
)

// ValidationError ошибки валидации по полям запроса
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CreateLinkInput данные для создания ссылки
type CreateLinkInput struct {
	URL         string  `validate:"required,max=2048,http_url"`
	Custom      string  `validate:"omitempty,min=6,max=20,codechars"`
	Title       *string `validate:"omitempty,max=255"`
	Description *string `validate:"omitempty,max=1000"`
	OwnerID     *string
}

// ShortenResult созданная или найденная ссылка
type ShortenResult struct {
	Link    *domain.Link
	Created bool // false, если ссылка на этот URL уже была выдана ранее
}

// URLShortenerService создает короткие ссылки
type URLShortenerService struct {
	links     repository.LinkStore
	generator *shortcode.Generator
	config    *config.URLShortener
	validate  *validator.Validate
	ownHost   string
	log       *zap.Logger
}

func NewURLShortener(links repository.LinkStore, cfg *config.URLShortener, log *zap.Logger) *URLShortenerService {
	return &URLShortenerService{
		links:     links,
		generator: shortcode.NewGenerator(cfg.CodeLength, cfg.MaxGenerationAttempts),
		config:    cfg,
		validate:  newValidator(),
		ownHost:   hostOf(cfg.BaseURL),
		log:       log.With(zap.String("component", "url_shortener")),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// длину проверяют min/max, которые идут раньше в цепочке тегов
	_ = v.RegisterValidation("codechars", func(fl validator.FieldLevel) bool {
		return shortcode.HasValidShape(fl.Field().String())
	})
	return v
}

// ShortURL возвращает полную короткую ссылку для кода
func (s *URLShortenerService) ShortURL(code string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + code
}

// Shorten создает ссылку. Без пользовательского кода повторный запрос с тем же URL
// возвращает уже выданную ссылку. Ошибки: *ValidationError, ErrCustomCodeTaken, ErrGenerationExhausted.
func (s *URLShortenerService) Shorten(ctx context.Context, in CreateLinkInput) (*ShortenResult, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.Custom = strings.TrimSpace(in.Custom)

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if in.Custom != "" {
		return s.createCustom(ctx, in)
	}

	existing, err := s.links.FindByOriginalURL(ctx, in.URL)
	switch {
	case err == nil:
		metrics.LinksCreated.WithLabelValues("deduplicated").Inc()
		s.log.Debug("reusing existing link", zap.String("short_code", existing.ShortCode))
		return &ShortenResult{Link: existing}, nil
	case !errors.Is(err, repository.ErrLinkNotFound):
		return nil, fmt.Errorf("failed to look up existing link: %w", err)
	}

	return s.createGenerated(ctx, in)
}

func (s *URLShortenerService) createCustom(ctx context.Context, in CreateLinkInput) (*ShortenResult, error) {
	exists, err := s.links.ShortCodeExists(ctx, in.Custom)
	if err != nil {
		return nil, fmt.Errorf("failed to check custom code existence: %w", err)
	}
	if exists {
		return nil, ErrCustomCodeTaken
	}

	link := newLink(in, in.Custom)
	if err := s.links.Insert(ctx, link); err != nil {
		// код заняли между проверкой и вставкой
		if errors.Is(err, repository.ErrShortCodeExists) {
			return nil, ErrCustomCodeTaken
		}
		return nil, fmt.Errorf("failed to save link: %w", err)
	}

	metrics.LinksCreated.WithLabelValues("custom").Inc()
	s.log.Info("link created", zap.String("short_code", link.ShortCode), zap.Bool("custom", true))
	return &ShortenResult{Link: link, Created: true}, nil
}

func (s *URLShortenerService) createGenerated(ctx context.Context, in CreateLinkInput) (*ShortenResult, error) {
	var link *domain.Link
	attempt := 0

	// проверка существования и вставка расходуют один и тот же бюджет попыток
	code, err := s.generator.Unique(ctx, func(ctx context.Context, code string) (bool, error) {
		attempt++
		exists, err := s.links.ShortCodeExists(ctx, code)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}

		candidate := newLink(in, code)
		err = s.links.Insert(ctx, candidate)
		if errors.Is(err, repository.ErrShortCodeExists) {
			s.log.Warn("generated code taken concurrently, retrying",
				zap.String("short_code", code),
				zap.Int("attempt", attempt),
			)
			return true, nil
		}
		if err != nil {
			return false, err
		}

		link = candidate
		return false, nil
	})
	if err != nil {
		if errors.Is(err, shortcode.ErrGenerationExhausted) {
			s.log.Error("short code space exhausted",
				zap.Int("length", s.generator.Length()),
				zap.Int("attempts", attempt),
			)
			return nil, ErrGenerationExhausted
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	metrics.LinksCreated.WithLabelValues("generated").Inc()
	s.log.Info("link created", zap.String("short_code", code), zap.Bool("custom", false))
	return &ShortenResult{Link: link, Created: true}, nil
}

func (s *URLShortenerService) validateInput(in CreateLinkInput) error {
	fields := map[string]string{}

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate input: %w", err)
		}
		for _, fe := range verrs {
			field, msg := fieldMessage(fe)
			if _, seen := fields[field]; !seen {
				fields[field] = msg
			}
		}
	}

	if _, bad := fields["url"]; !bad {
		host := hostOf(in.URL)
		switch {
		case !isDomainLike(host):
			fields["url"] = MsgURLInvalid
		case s.ownHost != "" && strings.EqualFold(host, s.ownHost):
			fields["url"] = MsgURLSelf
		}
	}
	if _, bad := fields["custom"]; !bad && in.Custom != "" && shortcode.IsReserved(in.Custom) {
		fields["custom"] = MsgCustomReserved
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) (string, string) {
	switch fe.StructField() {
	case "URL":
		switch fe.Tag() {
		case "required":
			return "url", MsgURLRequired
		case "max":
			return "url", MsgURLTooLong
		default:
			return "url", MsgURLInvalid
		}
	case "Custom":
		if fe.Tag() == "codechars" {
			return "custom", MsgCustomCharacters
		}
		return "custom", MsgCustomLength
	case "Title":
		return "title", MsgTitleTooLong
	case "Description":
		return "description", MsgDescTooLong
	}
	return strings.ToLower(fe.Field()), fe.Error()
}

func newLink(in CreateLinkInput, code string) *domain.Link {
	return &domain.Link{
		ShortCode:   code,
		OriginalURL: in.URL,
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     in.OwnerID,
		IsActive:    true,
	}
}

// isDomainLike принимает хосты с точкой и IP-адреса; "https://intranet" отклоняется
func isDomainLike(host string) bool {
	if net.ParseIP(host) != nil {
		return true
	}
	dot := strings.Index(host, ".")
	return dot > 0 && dot < len(host)-1
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
