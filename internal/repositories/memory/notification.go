package memory

import (
	"context"
	"sync"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/repositories"
)

// NotificationStore is an in-memory repositories.NotificationRepository.
type NotificationStore struct {
	mu     sync.Mutex
	nextID uint
	items  []models.Notification
	tokens []models.DeviceToken
}

var _ repositories.NotificationRepository = (*NotificationStore)(nil)

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = s.nextID
	n.CreatedAt = time.Now()
	s.items = append(s.items, *n)
	return nil
}

// All returns every stored notification in insertion order.
func (s *NotificationStore) All() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.items...)
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Notification
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].UserID == userID {
			all = append(all, s.items[i])
		}
	}
	return page(all, limit, offset), int64(len(all)), nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].IsRead = true
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].UserID == userID {
			s.items[i].IsRead = true
		}
	}
	return nil
}

func (s *NotificationStore) SaveDeviceToken(ctx context.Context, token *models.DeviceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.IsActive = true
	for i := range s.tokens {
		if s.tokens[i].Token == token.Token {
			token.ID = s.tokens[i].ID
			s.tokens[i] = *token
			return nil
		}
	}
	s.nextID++
	token.ID = s.nextID
	s.tokens = append(s.tokens, *token)
	return nil
}

func (s *NotificationStore) DeactivateDeviceToken(ctx context.Context, userID uint, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tokens {
		if s.tokens[i].UserID == userID && s.tokens[i].Token == token {
			s.tokens[i].IsActive = false
		}
	}
	return nil
}

func (s *NotificationStore) ActiveDeviceTokens(ctx context.Context, userID uint) ([]models.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DeviceToken
	for _, t := range s.tokens {
		if t.UserID == userID && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}
