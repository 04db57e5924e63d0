package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"go.uber.org/zap"
)

// Notifier delivers a push notification to every device of a user.
type Notifier interface {
	Send(ctx context.Context, userID, title, body string, data map[string]string) (domain.PushResult, error)
}

type NotificationService struct {
	users  domain.UserRepository
	sender domain.PushSender
	logger *zap.Logger
}

func NewNotificationService(users domain.UserRepository, sender domain.PushSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{users: users, sender: sender, logger: logger}
}

// Send pushes to the user's devices and prunes the tokens the gateway reports invalid.
// Users without devices or with notifications disabled are skipped.
func (s *NotificationService) Send(ctx context.Context, userID, title, body string, data map[string]string) (domain.PushResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.PushResult{}, err
	}
	if len(user.DeviceTokens) == 0 || !user.WantsFeedNotifications() {
		s.logger.Debug("push skipped", zap.String("user_id", userID), zap.Int("devices", len(user.DeviceTokens)))
		return domain.PushResult{}, nil
	}

	res, err := s.sender.Send(ctx, user.DeviceTokens, domain.PushMessage{Title: title, Body: body, Data: data})
	if err != nil {
		metrics.PushResults.WithLabelValues("error").Inc()
		return domain.PushResult{}, fmt.Errorf("notification service: %w", err)
	}
	metrics.PushResults.WithLabelValues("success").Add(float64(res.Success))
	metrics.PushResults.WithLabelValues("failure").Add(float64(res.Failure))

	if len(res.InvalidTokens) > 0 {
		removed, err := updateUser(ctx, s.users, userID, func(u *domain.User) bool {
			return u.RemoveDeviceTokens(res.InvalidTokens...) > 0
		})
		if err != nil {
			s.logger.Warn("failed to prune invalid device tokens", zap.String("user_id", userID), zap.Error(err))
		} else if removed {
			s.logger.Info("pruned invalid device tokens", zap.String("user_id", userID), zap.Int("count", len(res.InvalidTokens)))
		}
	}

	return res, nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token string) error {
	if token == "" {
		return domain.Invalid("device token is required")
	}
	_, err := updateUser(ctx, s.users, userID, func(u *domain.User) bool {
		return u.AddDeviceToken(token)
	})
	return err
}

func (s *NotificationService) RemoveDevice(ctx context.Context, userID, token string) error {
	_, err := updateUser(ctx, s.users, userID, func(u *domain.User) bool {
		return u.RemoveDeviceTokens(token) > 0
	})
	return err
}

// updateUser applies mutate and saves under the version guard, reloading on conflict.
// It reports whether anything was written.
func updateUser(ctx context.Context, users domain.UserRepository, userID string, mutate func(u *domain.User) bool) (bool, error) {
	for attempt := 1; ; attempt++ {
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			return false, err
		}
		if !mutate(user) {
			return false, nil
		}
		err = users.Update(ctx, user)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == maxVersionAttempts {
			return false, err
		}
	}
}
