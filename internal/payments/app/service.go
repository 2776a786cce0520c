package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	ordersdomain "github.com/mpetrovic/storefront/internal/orders/domain"
	ordersports "github.com/mpetrovic/storefront/internal/orders/ports"
	"github.com/mpetrovic/storefront/internal/payments/domain"
	"github.com/mpetrovic/storefront/internal/payments/metrics"
	"github.com/mpetrovic/storefront/internal/payments/ports"
	"github.com/mpetrovic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Config carries the gateway credentials and session policy.
type Config struct {
	KeyID      string
	KeySecret  string
	Currency   string
	SessionTTL time.Duration
}

// Service is the payment coordinator. It drives the three-leg handshake:
// Initiate opens a gateway session for a pending order, the browser widget
// collects payment, and Verify checks the callback signature before moving
// the order to paid.
type Service struct {
	sessions ports.SessionRepository
	orders   ordersports.OrderRepository
	gateway  ports.GatewayClient
	events   ordersports.EventBus
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      Config
}

func NewService(
	sessions ports.SessionRepository,
	orders ordersports.OrderRepository,
	gateway ports.GatewayClient,
	events ordersports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	cfg Config,
) *Service {
	return &Service{
		sessions: sessions,
		orders:   orders,
		gateway:  gateway,
		events:   events,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// InitiateResult is everything the client widget needs to collect payment.
type InitiateResult struct {
	SessionID      string `json:"session_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	GatewayKey     string `json:"gateway_key"`
}

// Initiate opens a payment session for a pending order owned by the user.
// An order with a still-collectable session cannot open a second one.
func (s *Service) Initiate(ctx context.Context, userID, orderID string) (*InitiateResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Payments.Initiate")
	defer span.End()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}
	if order.UserID != userID {
		return nil, ordersports.ErrNotFound
	}
	if order.Status != ordersdomain.StatusPending {
		return nil, ordersdomain.ErrOrderNotPending
	}

	existing, err := s.sessions.GetActiveByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}
	if existing != nil && !existing.ExpiredAt(time.Now().UTC()) {
		return nil, domain.ErrSessionActive
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, order.TotalCents, s.cfg.Currency, order.ID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		AmountCents:    gatewayOrder.AmountCents,
		Currency:       gatewayOrder.Currency,
		Status:         domain.SessionCreated,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.SessionTTL),
		UpdatedAt:      now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("persist payment session: %w", err)
	}

	s.metrics.RecordSessionOpened(ctx)
	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("payment.session_id", session.ID),
		attribute.Int64("payment.amount_cents", session.AmountCents),
	)
	telemetry.SetSpanSuccess(span)

	s.logger.InfoContext(ctx, "payment session opened",
		"order_id", order.ID,
		"session_id", session.ID,
		"gateway_order_id", session.GatewayOrderID,
		"expires_at", session.ExpiresAt,
	)

	return &InitiateResult{
		SessionID:      session.ID,
		GatewayOrderID: session.GatewayOrderID,
		AmountCents:    session.AmountCents,
		Currency:       session.Currency,
		GatewayKey:     s.cfg.KeyID,
	}, nil
}

// VerifyInput is the callback payload the gateway widget hands the client.
type VerifyInput struct {
	PaymentID      string `json:"payment_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Signature      string `json:"signature"`
	OrderID        string `json:"order_id"`
}

func (v VerifyInput) Validate() error {
	if strings.TrimSpace(v.PaymentID) == "" {
		return errors.New("payment_id is required")
	}
	if strings.TrimSpace(v.GatewayOrderID) == "" {
		return errors.New("gateway_order_id is required")
	}
	if strings.TrimSpace(v.Signature) == "" {
		return errors.New("signature is required")
	}
	if strings.TrimSpace(v.OrderID) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

// VerifyResult reports a successful settlement.
type VerifyResult struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Replayed  bool   `json:"replayed"`
}

// Verify validates the gateway callback and settles the order. It is
// idempotent: repeating it for an already-captured payment returns the same
// success with no further side effects. A verify racing a cancel loses
// cleanly on the order's compare-and-set transition.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Payments.Verify")
	defer span.End()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}
	if session.OrderID != input.OrderID {
		// A callback naming a different order than the session was opened
		// for is tampering, the same as a bad signature.
		s.recordMismatch(ctx, input, "order id does not match session")
		return nil, domain.ErrSignatureMismatch
	}

	if !domain.VerifySignature(s.cfg.KeySecret, input.GatewayOrderID, input.PaymentID, input.Signature) {
		s.recordMismatch(ctx, input, "signature does not match")
		return nil, domain.ErrSignatureMismatch
	}

	order, err := s.orders.GetByID(ctx, session.OrderID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	// Idempotent replay: the same callback for an already-settled payment
	// succeeds again. The signature already passed, so a session left in
	// created because an earlier capture write was lost is caught up here
	// rather than treated as a new attempt.
	if order.Status == ordersdomain.StatusPaid {
		switch session.Status {
		case domain.SessionCaptured:
			if session.PaymentID == input.PaymentID {
				s.metrics.RecordVerification(ctx, "replayed")
				telemetry.SetSpanSuccess(span)
				return &VerifyResult{OrderID: order.ID, PaymentID: input.PaymentID, Replayed: true}, nil
			}
			return nil, ordersdomain.ErrAlreadySettled
		case domain.SessionCreated:
			if err := s.sessions.UpdateStatus(ctx, session.ID, domain.SessionCreated, domain.SessionCaptured, input.PaymentID); err != nil && !errors.Is(err, ports.ErrStatusConflict) {
				s.logger.ErrorContext(ctx, "failed to capture session on replay",
					"error", err, "order_id", order.ID, "session_id", session.ID)
			}
			s.metrics.RecordVerification(ctx, "replayed")
			telemetry.SetSpanSuccess(span)
			return &VerifyResult{OrderID: order.ID, PaymentID: input.PaymentID, Replayed: true}, nil
		default:
			return nil, ordersdomain.ErrAlreadySettled
		}
	}

	now := time.Now().UTC()
	if session.Status == domain.SessionExpired || (session.Status == domain.SessionCreated && session.ExpiredAt(now)) {
		s.expireSession(ctx, *session)
		s.metrics.RecordVerification(ctx, "expired")
		return nil, domain.ErrSessionExpired
	}
	if session.IsTerminal() {
		return nil, ordersdomain.ErrOrderNotPending
	}

	// The order transition is the commit point. Losing the CAS means a
	// cancel (or another verify) got there first.
	if err := s.orders.UpdateStatus(ctx, order.ID, ordersdomain.StatusPending, ordersdomain.StatusPaid); err != nil {
		if errors.Is(err, ordersports.ErrStatusConflict) {
			return s.resolveConflict(ctx, session.GatewayOrderID, order.ID, input.PaymentID)
		}
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	if err := s.sessions.UpdateStatus(ctx, session.ID, domain.SessionCreated, domain.SessionCaptured, input.PaymentID); err != nil {
		// The order is already paid; the session row catches up on the
		// next replay. Surface nothing worse than a log line.
		s.logger.ErrorContext(ctx, "order paid but session not captured",
			"error", err, "order_id", order.ID, "session_id", session.ID)
	}

	if err := s.events.PublishOrderPaid(ctx, order.ID, input.PaymentID); err != nil {
		s.logger.ErrorContext(ctx, "order paid but failed to publish event",
			"error", err, "order_id", order.ID)
	}

	s.metrics.RecordVerification(ctx, "success")
	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("payment.id", input.PaymentID),
	)
	telemetry.SetSpanSuccess(span)

	s.logger.InfoContext(ctx, "payment verified",
		"order_id", order.ID,
		"payment_id", input.PaymentID,
		"session_id", session.ID,
	)

	return &VerifyResult{OrderID: order.ID, PaymentID: input.PaymentID}, nil
}

// resolveConflict maps a lost order CAS to the caller-facing outcome. When
// the winner was an identical verify for the same payment, the loser gets
// the replayed success instead of a conflict.
func (s *Service) resolveConflict(ctx context.Context, gatewayOrderID, orderID, paymentID string) (*VerifyResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case ordersdomain.StatusPaid:
		session, err := s.sessions.GetByGatewayOrderID(ctx, gatewayOrderID)
		if err == nil && session.Status == domain.SessionCaptured && session.PaymentID == paymentID {
			s.metrics.RecordVerification(ctx, "replayed")
			return &VerifyResult{OrderID: orderID, PaymentID: paymentID, Replayed: true}, nil
		}
		return nil, ordersdomain.ErrAlreadySettled
	case ordersdomain.StatusCancelled, ordersdomain.StatusFailed:
		return nil, ordersdomain.ErrOrderNotPending
	default:
		return nil, ordersports.ErrStatusConflict
	}
}

// ExpireSessions sweeps created sessions whose window lapsed, marking them
// expired and failing their orders. Called periodically by the reaper.
func (s *Service) ExpireSessions(ctx context.Context) (int, error) {
	sessions, err := s.sessions.ListExpired(ctx, time.Now().UTC(), 100)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	expired := 0
	for _, session := range sessions {
		if s.expireSession(ctx, session) {
			expired++
		}
	}

	return expired, nil
}

func (s *Service) expireSession(ctx context.Context, session domain.Session) bool {
	if err := s.sessions.UpdateStatus(ctx, session.ID, domain.SessionCreated, domain.SessionExpired, ""); err != nil {
		if !errors.Is(err, ports.ErrStatusConflict) {
			s.logger.ErrorContext(ctx, "failed to expire payment session",
				"error", err, "session_id", session.ID)
		}
		return false
	}

	// The order may have been cancelled meanwhile; a lost CAS is fine here.
	if err := s.orders.UpdateStatus(ctx, session.OrderID, ordersdomain.StatusPending, ordersdomain.StatusFailed); err != nil {
		if !errors.Is(err, ordersports.ErrStatusConflict) {
			s.logger.ErrorContext(ctx, "failed to fail order for expired session",
				"error", err, "order_id", session.OrderID)
		}
	} else if err := s.events.PublishOrderFailed(ctx, session.OrderID, "payment session expired"); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order failed event",
			"error", err, "order_id", session.OrderID)
	}

	s.metrics.RecordSessionExpired(ctx)
	s.logger.InfoContext(ctx, "payment session expired",
		"session_id", session.ID, "order_id", session.OrderID)

	return true
}

// recordMismatch logs a rejected callback. These are security events: a
// mismatch means either tampering or a gateway misconfiguration.
func (s *Service) recordMismatch(ctx context.Context, input VerifyInput, reason string) {
	s.metrics.RecordVerification(ctx, "mismatch")
	s.logger.WarnContext(ctx, "payment verification rejected",
		"reason", reason,
		"order_id", input.OrderID,
		"gateway_order_id", input.GatewayOrderID,
		"payment_id", input.PaymentID,
	)
}
