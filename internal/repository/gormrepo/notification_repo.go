package gormrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type notificationRepo struct {
	db *gorm.DB
}

var claimable = []string{models.NotificationPending, models.NotificationSending}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(n).Error)
}

func (r *notificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (r *notificationRepo) Claim(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (*models.Notification, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status IN ? AND next_attempt_at <= ?", id, claimable, now).
		Updates(map[string]any{
			"status":          models.NotificationSending,
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": leaseUntil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrStale
	}
	return r.FindByID(ctx, id)
}

func (r *notificationRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.NotificationSent,
			"sent_at":    at,
			"last_error": "",
		}).Error
}

func (r *notificationRepo) MarkRetry(ctx context.Context, id uuid.UUID, lastErr string, next time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          models.NotificationPending,
			"last_error":      lastErr,
			"next_attempt_at": next,
		}).Error
}

func (r *notificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.NotificationFailed,
			"last_error": lastErr,
		}).Error
}

func (r *notificationRepo) Reset(ctx context.Context, id uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, models.NotificationFailed).
		Updates(map[string]any{
			"status":          models.NotificationPending,
			"attempts":        0,
			"next_attempt_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("status IN ? AND next_attempt_at <= ?", claimable, now).
		Order("next_attempt_at asc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *notificationRepo) List(ctx context.Context, status string, page repository.Page) ([]models.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page.Limit > 0 {
		query = query.Limit(page.Limit).Offset(page.Offset)
	}

	var rows []models.Notification
	if err := query.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
