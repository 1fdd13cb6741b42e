package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shortlink-backend/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// ClickMessage is the payload of the click stream
type ClickMessage struct {
	ClickID        string    `json:"click_id"`
	LinkID         string    `json:"link_id"`
	ShortCode      string    `json:"short_code"`
	ClickedAt      time.Time `json:"clicked_at"`
	CountryCode    *string   `json:"country_code,omitempty"`
	DeviceType     *string   `json:"device_type,omitempty"`
	Browser        *string   `json:"browser,omitempty"`
	OS             *string   `json:"os,omitempty"`
	IsBot          bool      `json:"is_bot"`
	ReferrerType   string    `json:"referrer_type"`
	ReferrerDomain *string   `json:"referrer_domain,omitempty"`
	ReferrerSource *string   `json:"referrer_source,omitempty"`
}

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes recorded clicks keyed by short code, so clicks of one link stay ordered
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	log.Info("click stream publisher configured", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return newKafkaPublisher(writer, log)
}

func newKafkaPublisher(writer messageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		log:    log.With(zap.String("component", "click_publisher")),
	}
}

// Publish sends one click to the stream
func (p *KafkaPublisher) Publish(ctx context.Context, shortCode string, click *domain.Click) error {
	payload, err := json.Marshal(ClickMessage{
		ClickID:        click.ID,
		LinkID:         click.LinkID,
		ShortCode:      shortCode,
		ClickedAt:      click.ClickedAt,
		CountryCode:    click.CountryCode,
		DeviceType:     click.DeviceType,
		Browser:        click.Browser,
		OS:             click.OS,
		IsBot:          click.IsBot,
		ReferrerType:   click.ReferrerType,
		ReferrerDomain: click.ReferrerDomain,
		ReferrerSource: click.ReferrerSource,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal click message: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(shortCode),
		Value:   payload,
		Headers: traceHeaders(ctx),
		Time:    click.ClickedAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write click message: %w", err)
	}

	p.log.Debug("click published", zap.String("click_id", click.ID), zap.String("short_code", shortCode))
	return nil
}

// Close flushes pending messages
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// traceHeaders переносит контекст трейсинга в заголовки сообщения
func traceHeaders(ctx context.Context) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return headers
}
