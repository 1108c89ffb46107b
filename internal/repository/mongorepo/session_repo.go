package mongorepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/storefront/internal/models"
)

type sessionRepo struct {
	col *mongo.Collection
}

func (r *sessionRepo) Find(ctx context.Context, key string) (*models.OTPSession, error) {
	var doc sessionDoc
	if err := r.col.FindOne(ctx, bson.M{"identity_key": key}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (r *sessionRepo) Upsert(ctx context.Context, session *models.OTPSession) error {
	now := time.Now()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"identity_key": session.Key},
		bson.M{
			"$set": bson.M{
				"channel":        string(session.Channel),
				"otp":            session.OTP,
				"otp_expires_at": session.OTPExpiresAt,
				"updated_at":     now,
			},
			"$setOnInsert": bson.M{
				"_id":        uuid.NewString(),
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}

func (r *sessionRepo) Consume(ctx context.Context, key, code string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"identity_key": key, "otp": code})
	if err != nil {
		return false, translate(err)
	}
	return res.DeletedCount == 1, nil
}
