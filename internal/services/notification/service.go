package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"tekpay/internal/events"
	"tekpay/internal/models"
	"tekpay/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TypeTransaction = "transaction"
	TypeReferral    = "referral"
)

// Pusher delivers a push message to one device token.
type Pusher interface {
	Enabled() bool
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Service stores a notification row, then pushes it to the user's active
// devices and publishes a ledger event in the background. Delivery is best
// effort: push and publish failures are logged.
type Service struct {
	repo      repositories.NotificationRepository
	pusher    Pusher
	publisher events.Publisher
	logger    *zap.Logger
	inflight  sync.WaitGroup
}

func NewService(repo repositories.NotificationRepository, pusher Pusher, publisher events.Publisher, logger *zap.Logger) *Service {
	if repo == nil {
		panic("notification repository cannot be nil")
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, pusher: pusher, publisher: publisher, logger: logger}
}

// NotifyTransaction tells the owner of txn about its current status.
func (s *Service) NotifyTransaction(ctx context.Context, userID uint, txn *models.Transaction) {
	title := TransactionTitle(txn)
	message := TransactionMessage(txn)
	n := &models.Notification{
		UserID:        userID,
		Title:         title,
		Message:       message,
		Type:          TypeTransaction,
		TransactionID: &txn.ID,
		Reference:     txn.Reference,
		Amount:        txn.Amount,
		Status:        txn.Status,
	}
	s.dispatch(ctx, n, events.Event{
		ID:        txn.RequestID,
		Type:      events.TypeTransaction,
		UserID:    userID,
		Reference: txn.Reference,
		Category:  txn.Category,
		Status:    txn.Status,
		Amount:    txn.Amount,
		Title:     title,
		Message:   message,
	})
}

// NotifyReferral tells a referrer about a credited bonus.
func (s *Service) NotifyReferral(ctx context.Context, userID uint, amount decimal.Decimal, reference string) {
	title := "Referral Bonus"
	message := fmt.Sprintf("You received NGN %s referral bonus", amount.StringFixed(2))
	n := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      TypeReferral,
		Reference: reference,
		Amount:    amount,
		Status:    models.StatusSuccess,
	}
	s.dispatch(ctx, n, events.Event{
		ID:        reference,
		Type:      events.TypeReferral,
		UserID:    userID,
		Reference: reference,
		Category:  models.CategoryReferral,
		Status:    models.StatusSuccess,
		Amount:    amount,
		Title:     title,
		Message:   message,
	})
}

func (s *Service) dispatch(ctx context.Context, n *models.Notification, event events.Event) {
	log := s.logger.With(zap.Uint("user_id", n.UserID), zap.String("reference", n.Reference))

	if err := s.repo.Create(ctx, n); err != nil {
		log.Error("failed to store notification", zap.Error(err))
	}

	// outlives the request or webhook that triggered it
	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.push(bg, n, log)
		// publish errors are logged by the publisher
		_ = s.publisher.Publish(bg, event)
	}()
}

// Wait blocks until every background delivery has finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) push(ctx context.Context, n *models.Notification, log *zap.Logger) {
	if s.pusher == nil || !s.pusher.Enabled() {
		return
	}
	tokens, err := s.repo.ActiveDeviceTokens(ctx, n.UserID)
	if err != nil {
		log.Error("failed to load device tokens", zap.Error(err))
		return
	}
	data := map[string]string{
		"type":      n.Type,
		"reference": n.Reference,
		"status":    n.Status,
		"amount":    n.Amount.StringFixed(2),
	}
	if n.TransactionID != nil {
		data["transaction_id"] = strconv.FormatUint(uint64(*n.TransactionID), 10)
	}
	for _, t := range tokens {
		if err := s.pusher.Send(ctx, t.Token, n.Title, n.Message, data); err != nil {
			log.Warn("push failed", zap.String("platform", t.Platform), zap.Error(err))
		}
	}
}

func (s *Service) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uint) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) RegisterDevice(ctx context.Context, userID uint, token, platform string) error {
	return s.repo.SaveDeviceToken(ctx, &models.DeviceToken{UserID: userID, Token: token, Platform: platform})
}

func (s *Service) RemoveDevice(ctx context.Context, userID uint, token string) error {
	return s.repo.DeactivateDeviceToken(ctx, userID, token)
}

// TransactionTitle is "<Type> <Status>", e.g. "Transfer Failed".
func TransactionTitle(txn *models.Transaction) string {
	return humanize(txn.Type) + " " + humanize(txn.Status)
}

// TransactionMessage is "Your <type> of NGN <amount> was <status>".
func TransactionMessage(txn *models.Transaction) string {
	return fmt.Sprintf("Your %s of NGN %s was %s",
		strings.ReplaceAll(txn.Type, "_", " "), txn.Amount.StringFixed(2), txn.Status)
}

func humanize(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
