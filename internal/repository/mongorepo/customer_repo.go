package mongorepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type customerRepo struct {
	col *mongo.Collection
}

func (r *customerRepo) findOne(ctx context.Context, filter bson.M) (*customerDoc, error) {
	var doc customerDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (r *customerRepo) FindByKey(ctx context.Context, key models.IdentityKey) (*models.Customer, error) {
	var field string
	switch key.Channel {
	case models.ChannelEmail:
		field = "email"
	case models.ChannelPhone:
		field = "phone"
	default:
		return nil, fmt.Errorf("unknown identity channel %q", key.Channel)
	}

	doc, err := r.findOne(ctx, bson.M{field: key.Value})
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

func (r *customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	doc, err := r.findOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

func (r *customerRepo) Create(ctx context.Context, customer *models.Customer) error {
	customer.EnsureID()
	customer.Touch(time.Now())
	_, err := r.col.InsertOne(ctx, toCustomerDoc(customer))
	return translate(err)
}

func (r *customerRepo) SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{
		"otp":            code,
		"otp_expires_at": expiresAt,
		"updated_at":     time.Now(),
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *customerRepo) ConsumeOTP(ctx context.Context, id uuid.UUID, code, name string) (bool, error) {
	set := bson.M{"updated_at": time.Now()}
	if name != "" {
		set["name"] = bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$name", ""}}, ""}},
			name,
			"$name",
		}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: set}},
		{{Key: "$unset", Value: bson.A{"otp", "otp_expires_at"}}},
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id.String(), "otp": code}, pipeline)
	if err != nil {
		return false, translate(err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *customerRepo) CompleteName(ctx context.Context, id uuid.UUID, name string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id.String(), "name": bson.M{"$in": bson.A{"", nil}}},
		bson.M{"$set": bson.M{"name": name, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, translate(err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *customerRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"name": name, "updated_at": time.Now()}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *customerRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *customerRepo) AddAddress(ctx context.Context, address *models.CustomerAddress) error {
	address.EnsureID()
	address.Touch(time.Now())
	filter := bson.M{"_id": address.CustomerID.String()}

	if address.IsDefault {
		if _, err := r.col.UpdateOne(ctx, bson.M{"_id": address.CustomerID.String(), "addresses.0": bson.M{"$exists": true}},
			bson.M{"$set": bson.M{"addresses.$[].is_default": false}}); err != nil {
			return translate(err)
		}
	}

	res, err := r.col.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"addresses": toAddressDoc(address)},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *customerRepo) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]models.CustomerAddress, error) {
	doc, err := r.findOne(ctx, bson.M{"_id": customerID.String()})
	if err != nil {
		return nil, err
	}
	out := make([]models.CustomerAddress, 0, len(doc.Addresses))
	for _, a := range doc.Addresses {
		out = append(out, a.model(customerID))
	}
	return out, nil
}

func (r *customerRepo) UpdateAddress(ctx context.Context, customerID, addressID uuid.UUID, fields map[string]any) (*models.CustomerAddress, error) {
	if isDefault, ok := fields["is_default"].(bool); ok && isDefault {
		if _, err := r.col.UpdateOne(ctx, bson.M{"_id": customerID.String(), "addresses.0": bson.M{"$exists": true}},
			bson.M{"$set": bson.M{"addresses.$[].is_default": false}}); err != nil {
			return nil, translate(err)
		}
	}

	set := bson.M{"addresses.$.updated_at": time.Now()}
	for k, v := range fields {
		set["addresses.$."+k] = v
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": customerID.String(), "addresses._id": addressID.String()},
		bson.M{"$set": set},
	)
	if err != nil {
		return nil, translate(err)
	}
	if res.MatchedCount == 0 {
		return nil, repository.ErrNotFound
	}

	addresses, err := r.ListAddresses(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range addresses {
		if addresses[i].ID == addressID {
			return &addresses[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *customerRepo) DeleteAddress(ctx context.Context, customerID, addressID uuid.UUID) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": customerID.String(), "addresses._id": addressID.String()},
		bson.M{"$pull": bson.M{"addresses": bson.M{"_id": addressID.String()}}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
