package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"grocery_store/model"
)

// Publisher pushes a stored notification to live subscribers of its recipient.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// Mailer sends a plain email copy of a notification.
type Mailer interface {
	Send(to, subject, body string) error
}

// Types that also go out by email, when a mailer is configured.
var emailedNotificationTypes = []model.NotificationType{
	model.NotificationPaymentConfirmed,
	model.NotificationOrderCancelled,
	model.NotificationRefundProcessed,
}

type NotificationDispatcherDeps struct {
	Repository NotificationRepository
	Publisher  Publisher
	Mailer     Mailer
	Users      UserDirectory
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NotificationDispatcher is the NotificationEmitter used in production. Persisting is the only
// step whose failure is reported; live push and email are best-effort.
type NotificationDispatcher struct {
	repo      NotificationRepository
	publisher Publisher
	mailer    Mailer
	users     UserDirectory
	logger    *zap.Logger
	clock     func() time.Time
}

func NewNotificationDispatcher(deps NotificationDispatcherDeps) (*NotificationDispatcher, error) {
	if deps.Repository == nil {
		return nil, errors.New("notification dispatcher: repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &NotificationDispatcher{
		repo:      deps.Repository,
		publisher: deps.Publisher,
		mailer:    deps.Mailer,
		users:     deps.Users,
		logger:    logger,
		clock:     clock,
	}, nil
}

func (d *NotificationDispatcher) Emit(ctx context.Context, n model.Notification) error {
	if n.RecipientID == 0 {
		return errors.New("notification: recipient is required")
	}
	n.Read = false
	n.ReadAt = nil
	n.CreatedAt = d.clock().UTC()
	if err := d.repo.Create(ctx, &n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, n); err != nil {
			d.logger.Warn("notification publish failed",
				zap.Uint("notification_id", n.ID),
				zap.Uint("recipient_id", n.RecipientID),
				zap.Error(err))
		}
	}
	if d.mailer != nil && d.users != nil && slices.Contains(emailedNotificationTypes, n.Type) {
		d.email(ctx, n)
	}
	return nil
}

func (d *NotificationDispatcher) email(ctx context.Context, n model.Notification) {
	user, err := d.users.FindByID(ctx, n.RecipientID)
	if err != nil {
		d.logger.Warn("notification email skipped", zap.Uint("recipient_id", n.RecipientID), zap.Error(err))
		return
	}
	if user.Email == "" {
		return
	}
	if err := d.mailer.Send(user.Email, n.Title, n.Message); err != nil {
		d.logger.Warn("notification email failed", zap.Uint("recipient_id", n.RecipientID), zap.Error(err))
	}
}

type NotificationPage struct {
	Notifications []model.Notification
	Total         int64
	Page          int
	Limit         int
}

// NotificationService is the recipient-facing inbox.
type NotificationService struct {
	repo   NotificationRepository
	logger *zap.Logger
	clock  func() time.Time
}

func NewNotificationService(repo NotificationRepository, logger *zap.Logger, clock func() time.Time) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &NotificationService{repo: repo, logger: logger, clock: clock}
}

func (s *NotificationService) List(ctx context.Context, recipientID uint, page Page) (NotificationPage, error) {
	page = page.normalize()
	items, total, err := s.repo.ListByRecipient(ctx, recipientID, page.Limit, page.offset())
	if err != nil {
		return NotificationPage{}, internalError(err, "notification list")
	}
	return NotificationPage{Notifications: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID uint) error {
	if err := s.repo.MarkRead(ctx, id, recipientID, s.clock().UTC()); err != nil {
		return s.mapErr(err, "notification update")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, recipientID, s.clock().UTC())
	if err != nil {
		return 0, internalError(err, "notification update")
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, id, recipientID uint) error {
	if err := s.repo.Delete(ctx, id, recipientID); err != nil {
		return s.mapErr(err, "notification delete")
	}
	return nil
}

// PurgeRead drops read notifications older than retention. It backs the scheduled cleanup job.
func (s *NotificationService) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.clock().UTC().Add(-retention)
	n, err := s.repo.PurgeRead(ctx, cutoff)
	if err != nil {
		return 0, internalError(err, "notification purge")
	}
	s.logger.Info("read notifications purged", zap.Int64("count", n), zap.Time("before", cutoff))
	return n, nil
}

func (s *NotificationService) mapErr(err error, op string) error {
	if errors.Is(err, ErrRecordNotFound) {
		return notFoundError(ErrNotificationNotFound, "Notification not found")
	}
	return internalError(err, op)
}
