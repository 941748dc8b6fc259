package repository

import (
	"context"
	"time"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
)

// RefreshTokenRepository stores opaque refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// Revoke marks token revoked. It returns gorm.ErrRecordNotFound when the
	// token is unknown or already revoked.
	Revoke(ctx context.Context, token string, at time.Time) error
	// Rotate revokes oldToken and stores next in one transaction.
	Rotate(ctx context.Context, oldToken string, next *model.RefreshToken) error
	// DeleteStale removes tokens that expired or were revoked before now.
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string, at time.Time) error {
	return revokeToken(r.db.WithContext(ctx), token, at)
}

func (r *refreshTokenRepository) Rotate(ctx context.Context, oldToken string, next *model.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := revokeToken(tx, oldToken, time.Now()); err != nil {
			return err
		}
		return tx.Create(next).Error
	})
}

func (r *refreshTokenRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at IS NOT NULL", now).
		Delete(&model.RefreshToken{})
	return result.RowsAffected, result.Error
}

// revokeToken only touches live rows, so two concurrent rotations of the same
// token cannot both succeed.
func revokeToken(db *gorm.DB, token string, at time.Time) error {
	result := db.Model(&model.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", token).
		Update("revoked_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
