package notification

import (
	"context"
	"fmt"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/gdugdh24/matchcore/internal/usecase/likes"
)

// NotificationUseCase serves the stored inbox for users who missed live envelopes.
type NotificationUseCase struct {
	repo repository.NotificationRepository
}

func NewNotificationUseCase(repo repository.NotificationRepository) *NotificationUseCase {
	return &NotificationUseCase{repo: repo}
}

// ListResult is one page of the inbox
type ListResult struct {
	Items       []*domain.Notification `json:"items"`
	Total       int                    `json:"total"`
	UnreadCount int                    `json:"unread_count"`
	Limit       int                    `json:"limit"`
	Offset      int                    `json:"offset"`
}

func (uc *NotificationUseCase) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) (*ListResult, error) {
	limit, offset = likes.NormalizePage(limit, offset)
	items, total, err := uc.repo.List(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := uc.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	return &ListResult{
		Items:       items,
		Total:       total,
		UnreadCount: unread,
		Limit:       limit,
		Offset:      offset,
	}, nil
}

func (uc *NotificationUseCase) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := uc.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead fails with domain.ErrNotificationNotFound for unknown ids and ids owned by someone else.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, id string) error {
	if err := uc.repo.MarkRead(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := uc.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
