package mongorepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type orderRepo struct {
	col *mongo.Collection
}

func (r *orderRepo) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var doc orderDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	order.EnsureID()
	order.ApplyPaymentDefaults()
	order.Touch(time.Now())
	_, err := r.col.InsertOne(ctx, toOrderDoc(order))
	return translate(err)
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *orderRepo) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"razorpay_order_id": providerOrderID})
}

func (r *orderRepo) Update(ctx context.Context, order *models.Order) error {
	prev := order.Version
	prevUpdated := order.UpdatedAt
	order.Version = prev + 1
	order.UpdatedAt = time.Now()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": order.ID.String(), "version": prev}, toOrderDoc(order))
	if err != nil {
		order.Version, order.UpdatedAt = prev, prevUpdated
		return translate(err)
	}
	if res.MatchedCount == 0 {
		order.Version, order.UpdatedAt = prev, prevUpdated
		return repository.ErrStale
	}
	return nil
}

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter, page repository.Page) ([]models.Order, int64, error) {
	query := bson.M{}
	if filter.CustomerID != nil {
		query["customer_id"] = filter.CustomerID.String()
	}
	if filter.PaymentStatus != "" {
		query["payment_status"] = filter.PaymentStatus
	}
	if filter.PaymentMethod != "" {
		query["payment_method"] = filter.PaymentMethod
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.col.Find(ctx, query, findOptions(page))
	if err != nil {
		return nil, 0, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, *d.model())
	}
	return orders, total, nil
}

func (r *orderRepo) Stats(ctx context.Context) (*repository.OrderStats, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":    "$payment_status",
			"count":  bson.M{"$sum": 1},
			"amount": bson.M{"$sum": "$amount"},
		}}},
	})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string  `bson:"_id"`
		Count  int64   `bson:"count"`
		Amount float64 `bson:"amount"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := &repository.OrderStats{ByStatus: make(map[string]int64)}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
		switch row.Status {
		case models.PaymentStatusPaid:
			stats.PaidRevenue += row.Amount
		case models.PaymentStatusPending, models.PaymentStatusCODPending:
			stats.PendingAmount += row.Amount
		}
	}
	return stats, nil
}
