package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"grocery_store/model"
)

// notifyAdmins fans a notification out to every admin after the calling transition committed.
func (s *OrderService) notifyAdmins(ctx context.Context, kind model.NotificationType, title, message string, orderID uint) {
	if s.notifier == nil || s.users == nil {
		return
	}
	s.sideEffect(ctx, "notification", func(ctx context.Context) error {
		admins, err := s.users.AdminIDs(ctx)
		if err != nil {
			return fmt.Errorf("list admins: %w", err)
		}
		var firstErr error
		for _, id := range admins {
			if err := s.notifier.Emit(ctx, newNotification(id, kind, title, message, orderID)); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}

func (s *OrderService) notifyUser(ctx context.Context, recipientID uint, kind model.NotificationType, title, message string, orderID uint) {
	if s.notifier == nil {
		return
	}
	s.sideEffect(ctx, "notification", func(ctx context.Context) error {
		return s.notifier.Emit(ctx, newNotification(recipientID, kind, title, message, orderID))
	})
}

// sideEffect runs fn through the dispatcher, detached from request cancellation. Errors and
// panics are logged and counted; they never reach the caller.
func (s *OrderService) sideEffect(ctx context.Context, kind string, fn func(context.Context) error) {
	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		defer func() {
			if r := recover(); r != nil {
				s.metrics.SideEffectFailed(kind)
				s.logger.Error("side effect panicked", zap.String("kind", kind), zap.Any("panic", r))
			}
		}()
		if err := fn(detached); err != nil {
			s.metrics.SideEffectFailed(kind)
			s.logger.Warn("side effect failed", zap.String("kind", kind), zap.Error(err))
		}
	})
}

func (s *OrderService) storeBlob(ctx context.Context, name string, data []byte) (string, error) {
	if s.blobs == nil {
		return "", dependencyError(nil, "Image storage is not configured")
	}
	url, err := s.blobs.Store(ctx, name, data)
	if err != nil {
		return "", dependencyError(err, "Image upload failed")
	}
	return url, nil
}

// deleteBlob is best-effort and synchronous.
func (s *OrderService) deleteBlob(ctx context.Context, url string) {
	if s.blobs == nil || url == "" {
		return
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), url); err != nil {
		s.metrics.SideEffectFailed("blob_delete")
		s.logger.Warn("blob delete failed", zap.String("url", url), zap.Error(err))
	}
}

func newNotification(recipientID uint, kind model.NotificationType, title, message string, orderID uint) model.Notification {
	n := model.Notification{
		RecipientID: recipientID,
		Type:        kind,
		Title:       title,
		Message:     message,
	}
	if orderID != 0 {
		id := orderID
		n.RelatedOrderID = &id
	}
	return n
}
