package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/cache"
	"storefront/events"
	"storefront/model"
	"storefront/payment"
	"storefront/store"
)

const maxNameLen = 100

type Service struct {
	store    store.Store
	payments payment.Provider
	events   events.Publisher
	ledger   cache.Ledger
	log      *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.events = p } }
func WithLedger(l cache.Ledger) Option        { return func(s *Service) { s.ledger = l } }
func WithLogger(l *slog.Logger) Option        { return func(s *Service) { s.log = l } }

func NewService(st store.Store, provider payment.Provider, opts ...Option) *Service {
	s := &Service{
		store:    st,
		payments: provider,
		events:   events.NopPublisher{},
		ledger:   cache.NopLedger{},
		log:      slog.Default(),
		tracer:   otel.Tracer("storefront/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "Service."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// publish is best effort: the state change it reports is already committed.
func (s *Service) publish(ctx context.Context, typ string, orderID int64, userID string, payload any) {
	ev := events.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OrderID:    orderID,
		UserID:     userID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.ErrorContext(ctx, "publish event failed", "event_type", typ, "order_id", orderID, "error", err)
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return model.Invalid("user_id", "user id required")
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return model.Invalid("name", "name required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return model.Invalid("name", "name must be at most 100 characters")
	}
	return nil
}
