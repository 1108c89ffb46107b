package mongorepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type notificationRepo struct {
	col *mongo.Collection
}

var claimable = bson.A{models.NotificationPending, models.NotificationSending}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	n.EnsureID()
	n.Touch(time.Now())
	_, err := r.col.InsertOne(ctx, toNotificationDoc(n))
	return translate(err)
}

func (r *notificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var doc notificationDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (r *notificationRepo) Claim(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (*models.Notification, error) {
	var doc notificationDoc
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{
			"_id":             id.String(),
			"status":          bson.M{"$in": claimable},
			"next_attempt_at": bson.M{"$lte": now},
		},
		bson.M{
			"$set": bson.M{"status": models.NotificationSending, "next_attempt_at": leaseUntil, "updated_at": now},
			"$inc": bson.M{"attempts": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrStale
	}
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

func (r *notificationRepo) set(ctx context.Context, filter bson.M, fields bson.M) (*mongo.UpdateResult, error) {
	fields["updated_at"] = time.Now()
	return r.col.UpdateOne(ctx, filter, bson.M{"$set": fields})
}

func (r *notificationRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.set(ctx, bson.M{"_id": id.String()}, bson.M{
		"status":     models.NotificationSent,
		"sent_at":    at,
		"last_error": "",
	})
	return err
}

func (r *notificationRepo) MarkRetry(ctx context.Context, id uuid.UUID, lastErr string, next time.Time) error {
	_, err := r.set(ctx, bson.M{"_id": id.String()}, bson.M{
		"status":          models.NotificationPending,
		"last_error":      lastErr,
		"next_attempt_at": next,
	})
	return err
}

func (r *notificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	_, err := r.set(ctx, bson.M{"_id": id.String()}, bson.M{
		"status":     models.NotificationFailed,
		"last_error": lastErr,
	})
	return err
}

func (r *notificationRepo) Reset(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.set(ctx, bson.M{"_id": id.String(), "status": models.NotificationFailed}, bson.M{
		"status":          models.NotificationPending,
		"attempts":        0,
		"next_attempt_at": now,
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"status": bson.M{"$in": claimable}, "next_attempt_at": bson.M{"$lte": now}},
		options.Find().SetSort(bson.D{{Key: "next_attempt_at", Value: 1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	return decodeNotifications(ctx, cur)
}

func (r *notificationRepo) List(ctx context.Context, status string, page repository.Page) ([]models.Notification, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, filter, findOptions(page))
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeNotifications(ctx, cur)
	return rows, total, err
}

func decodeNotifications(ctx context.Context, cur *mongo.Cursor) ([]models.Notification, error) {
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.model())
	}
	return out, nil
}
