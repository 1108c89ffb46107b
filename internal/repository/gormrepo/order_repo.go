package gormrepo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type orderRepo struct {
	db   *gorm.DB
	lock bool
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(order).Error)
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepo) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Order, error) {
	query := r.db.WithContext(ctx)
	if r.lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := query.Where("razorpay_order_id = ?", providerOrderID).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepo) Update(ctx context.Context, order *models.Order) error {
	prev := order.Version
	order.Version = prev + 1

	res := r.db.WithContext(ctx).Model(order).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(order)
	if res.Error != nil {
		order.Version = prev
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		order.Version = prev
		return repository.ErrStale
	}
	return nil
}

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter, page repository.Page) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page.Limit > 0 {
		query = query.Limit(page.Limit).Offset(page.Offset)
	}

	var orders []models.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepo) Stats(ctx context.Context) (*repository.OrderStats, error) {
	type statusCount struct {
		PaymentStatus string
		Count         int64
	}
	var counts []statusCount
	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("payment_status, count(*) as count").
		Group("payment_status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	stats := &repository.OrderStats{ByStatus: make(map[string]int64)}
	for _, sc := range counts {
		stats.ByStatus[sc.PaymentStatus] = sc.Count
		stats.TotalOrders += sc.Count
	}

	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.PaidRevenue).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_status IN ?", []string{models.PaymentStatusPending, models.PaymentStatusCODPending}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.PendingAmount).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
