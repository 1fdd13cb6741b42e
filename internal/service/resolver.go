package service

import (
	"context"
	"errors"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"
	"shortlink-backend/internal/shortcode"
	"shortlink-backend/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Outcome результат разрешения короткого кода
type Outcome int

const (
	// OutcomeShortCircuit путь зарезервирован или не похож на код; хранилище не опрашивалось
	OutcomeShortCircuit Outcome = iota
	// OutcomeResolved найдена активная ссылка
	OutcomeResolved
	// OutcomeNotFound кода нет, ссылка неактивна или хранилище недоступно
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeShortCircuit:
		return metrics.OutcomeShortCircuit
	case OutcomeResolved:
		return metrics.OutcomeResolved
	default:
		return metrics.OutcomeNotFound
	}
}

// Resolver превращает короткий код в ссылку для редиректа
type Resolver struct {
	links  repository.LinkStore
	log    *zap.Logger
	tracer trace.Tracer
}

func NewResolver(links repository.LinkStore, log *zap.Logger) *Resolver {
	return &Resolver{
		links:  links,
		log:    log.With(zap.String("component", "resolver")),
		tracer: otel.Tracer("shortlink-backend/service"),
	}
}

// Resolve находит активную ссылку по коду. Ссылка возвращается только при OutcomeResolved.
// Ошибка хранилища трактуется как отсутствие ссылки и не повторяется.
func (r *Resolver) Resolve(ctx context.Context, code string) (*domain.Link, Outcome) {
	if shortcode.IsReserved(code) || !shortcode.HasValidShape(code) {
		metrics.Redirects.WithLabelValues(OutcomeShortCircuit.String()).Inc()
		return nil, OutcomeShortCircuit
	}

	ctx, span := r.tracer.Start(ctx, "resolver.resolve", trace.WithAttributes(attribute.String("link.short_code", code)))
	defer span.End()

	link, err := r.links.FindActiveByShortCode(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrLinkNotFound) {
			span.RecordError(err)
			r.log.Error("lookup failed, treating as not found", zap.String("short_code", code), zap.Error(err))
		}
		span.SetAttributes(attribute.String("resolve.outcome", OutcomeNotFound.String()))
		metrics.Redirects.WithLabelValues(OutcomeNotFound.String()).Inc()
		return nil, OutcomeNotFound
	}

	span.SetAttributes(
		attribute.String("resolve.outcome", OutcomeResolved.String()),
		attribute.String("link.id", link.ID),
	)
	metrics.Redirects.WithLabelValues(OutcomeResolved.String()).Inc()
	return link, OutcomeResolved
}
