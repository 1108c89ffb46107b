package gormrepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
)

type sessionRepo struct {
	db *gorm.DB
}

func (r *sessionRepo) Find(ctx context.Context, key string) (*models.OTPSession, error) {
	var session models.OTPSession
	if err := r.db.WithContext(ctx).Where("identity_key = ?", key).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *sessionRepo) Upsert(ctx context.Context, session *models.OTPSession) error {
	session.UpdatedAt = time.Now()
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"channel", "otp", "otp_expires_at", "updated_at"}),
	}).Create(session).Error)
}

func (r *sessionRepo) Consume(ctx context.Context, key, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("identity_key = ? AND otp = ?", key, code).
		Delete(&models.OTPSession{})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}
