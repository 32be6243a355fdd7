package notification

import (
	"context"

	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/notification"
	"fieldserve-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// Pusher delivers a realtime event to connected dashboard users.
type Pusher interface {
	Push(userIDs []int64, event string, data interface{})
}

type NotificationService struct {
	notifRepo *postgres.NotificationRepository
	authRepo  *postgres.AuthRepository
	pusher    Pusher
	logger    *zap.Logger
}

func NewNotificationService(
	notifRepo *postgres.NotificationRepository,
	authRepo *postgres.AuthRepository,
	pusher Pusher,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		authRepo:  authRepo,
		pusher:    pusher,
		logger:    logger,
	}
}

// AgreementEvent fans one agreement lifecycle event out to every active
// user of the agreement's company: a persisted row each, plus a
// websocket push. Failures are logged, never propagated — notification
// delivery must not fail the lifecycle operation that triggered it.
func (s *NotificationService) AgreementEvent(ctx context.Context, a *agreement.ServiceAgreement, t notification.Type, title, body string) {
	users, err := s.authRepo.ListByCompany(ctx, a.CompanyID)
	if err != nil {
		s.logger.Error("failed to load notification recipients",
			zap.Int64("company_id", a.CompanyID),
			zap.Error(err),
		)
		return
	}

	userIDs := make([]int64, 0, len(users))
	for _, u := range users {
		n := &notification.Notification{
			CompanyID:   a.CompanyID,
			UserID:      u.ID,
			Type:        t,
			Title:       title,
			Body:        body,
			AgreementID: a.ID,
		}
		if err := s.notifRepo.Create(ctx, n); err != nil {
			s.logger.Error("failed to persist notification",
				zap.Int64("user_id", u.ID),
				zap.Error(err),
			)
			continue
		}
		userIDs = append(userIDs, u.ID)
	}

	if s.pusher != nil && len(userIDs) > 0 {
		s.pusher.Push(userIDs, "notification", map[string]interface{}{
			"type":         t,
			"title":        title,
			"body":         body,
			"agreement_id": a.ID,
		})
	}
}

func (s *NotificationService) List(ctx context.Context, userID int64, limit int) ([]notification.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.notifRepo.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	return s.notifRepo.MarkRead(ctx, userID, id)
}
