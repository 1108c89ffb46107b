package gormrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type customerRepo struct {
	db *gorm.DB
}

func (r *customerRepo) FindByKey(ctx context.Context, key models.IdentityKey) (*models.Customer, error) {
	var column string
	switch key.Channel {
	case models.ChannelEmail:
		column = "email"
	case models.ChannelPhone:
		column = "phone"
	default:
		return nil, fmt.Errorf("unknown identity channel %q", key.Channel)
	}

	var customer models.Customer
	if err := r.db.WithContext(ctx).Where(column+" = ?", key.Value).First(&customer).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r *customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r *customerRepo) Create(ctx context.Context, customer *models.Customer) error {
	return translate(r.db.WithContext(ctx).Create(customer).Error)
}

func (r *customerRepo) SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{"otp": code, "otp_expires_at": expiresAt})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *customerRepo) ConsumeOTP(ctx context.Context, id uuid.UUID, code, name string) (bool, error) {
	updates := map[string]any{"otp": nil, "otp_expires_at": nil}
	if name != "" {
		updates["name"] = gorm.Expr("CASE WHEN COALESCE(name, '') = '' THEN ? ELSE name END", name)
	}

	res := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ? AND otp = ?", id, code).
		Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *customerRepo) CompleteName(ctx context.Context, id uuid.UUID, name string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ? AND COALESCE(name, '') = ''", id).
		Update("name", name)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *customerRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *customerRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&total).Error
	return total, err
}

func (r *customerRepo) AddAddress(ctx context.Context, address *models.CustomerAddress) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := tx.Model(&models.CustomerAddress{}).
				Where("customer_id = ?", address.CustomerID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return translate(tx.Create(address).Error)
	})
}

func (r *customerRepo) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]models.CustomerAddress, error) {
	var addresses []models.CustomerAddress
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at asc").
		Find(&addresses).Error
	return addresses, err
}

func (r *customerRepo) UpdateAddress(ctx context.Context, customerID, addressID uuid.UUID, fields map[string]any) (*models.CustomerAddress, error) {
	var updated models.CustomerAddress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isDefault, ok := fields["is_default"].(bool); ok && isDefault {
			if err := tx.Model(&models.CustomerAddress{}).
				Where("customer_id = ? AND id <> ?", customerID, addressID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&models.CustomerAddress{}).
			Where("id = ? AND customer_id = ?", addressID, customerID).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return tx.First(&updated, "id = ?", addressID).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

func (r *customerRepo) DeleteAddress(ctx context.Context, customerID, addressID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", addressID, customerID).
		Delete(&models.CustomerAddress{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
