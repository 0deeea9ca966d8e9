package services

import (
	"context"
	"net/http"
	"strconv"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.uber.org/zap"
)

// NotificationList is one page of a user's inbox.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
	Meta          models.MetaData       `json:"meta"`
}

// NotificationService serves the per-user inbox. Without a repository the inbox is disabled and every
// call reports 503.
type NotificationService interface {
	ListMyNotifications(ctx context.Context, p auth.Principal, unreadOnly bool, page models.Page) (*NotificationList, *ServiceError)
	MarkRead(ctx context.Context, p auth.Principal, id string) *ServiceError
	MarkAllRead(ctx context.Context, p auth.Principal) (int64, *ServiceError)
	Notify(ctx context.Context, notifications ...*models.Notification) error
	Enabled() bool
}

type notificationServiceImpl struct {
	repo   repository.NotificationRepo
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepo, logger *zap.Logger) NotificationService {
	return &notificationServiceImpl{repo: repo, logger: logger}
}

var errInboxDisabled = newError(http.StatusServiceUnavailable, "Notifications are not available")

func (s *notificationServiceImpl) Enabled() bool { return s.repo != nil }

func (s *notificationServiceImpl) ListMyNotifications(ctx context.Context, p auth.Principal, unreadOnly bool, page models.Page) (*NotificationList, *ServiceError) {
	if !s.Enabled() {
		return nil, errInboxDisabled
	}
	page = normalizePage(page)
	items, total, err := s.repo.List(ctx, models.NotificationFilter{
		UserID:     p.UserID,
		UnreadOnly: unreadOnly,
		Page:       page.Page,
		PageSize:   page.Limit,
	})
	if err != nil {
		return nil, internalError(s.logger, "failed to list notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, p.UserID)
	if err != nil {
		return nil, internalError(s.logger, "failed to count unread notifications", err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &NotificationList{Notifications: items, Unread: unread, Meta: models.NewMetaData(page, total)}, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, p auth.Principal, id string) *ServiceError {
	if !s.Enabled() {
		return errInboxDisabled
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return badRequest("Invalid notification id")
	}
	if err := s.repo.MarkRead(ctx, p.UserID, uint(n)); err != nil {
		return fromRepo(s.logger, err, "Notification not found", "failed to mark notification read")
	}
	return nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, p auth.Principal) (int64, *ServiceError) {
	if !s.Enabled() {
		return 0, errInboxDisabled
	}
	n, err := s.repo.MarkAllRead(ctx, p.UserID)
	if err != nil {
		return 0, internalError(s.logger, "failed to mark notifications read", err)
	}
	return n, nil
}

// Notify stores notifications produced by event subscribers. It is a no-op when the inbox is disabled.
func (s *notificationServiceImpl) Notify(ctx context.Context, notifications ...*models.Notification) error {
	if !s.Enabled() || len(notifications) == 0 {
		return nil
	}
	return s.repo.Create(ctx, notifications...)
}
