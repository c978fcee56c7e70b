package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	compensateTimeout   = 5 * time.Second
	checkoutsCollection = "checkouts"
)

// MongoRepository stores one document per order. A checkouts collection keyed
// by order code reserves the code before any order of the checkout is written.
type MongoRepository struct {
	coll      *mongo.Collection
	checkouts *mongo.Collection
}

type checkoutDoc struct {
	OrderCode string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	CreatedAt time.Time `bson:"createdAt"`
}

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func NewMongoRepository(db *mongo.Database, collection string) *MongoRepository {
	return &MongoRepository{
		coll:      db.Collection(collection),
		checkouts: db.Collection(checkoutsCollection),
	}
}

// EnsureIndexes creates the checkout uniqueness key and the lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderCode", Value: 1}, {Key: "ownerId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("orderCode_ownerId_unique"),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
	})
	return err
}

// InsertMany reserves the order code, then writes the checkout in one ordered
// insert. If that fails half way the documents written by this call and the
// reservation are removed again.
func (r *MongoRepository) InsertMany(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	code := orders[0].OrderCode
	_, err := r.checkouts.InsertOne(ctx, checkoutDoc{OrderCode: code, UserID: orders[0].UserID, CreatedAt: orders[0].CreatedAt})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderCode, code)
	}
	if err != nil {
		return fmt.Errorf("reserve order code %s: %w", code, err)
	}

	docs := make([]interface{}, len(orders))
	ids := make([]string, len(orders))
	for i := range orders {
		docs[i] = orders[i]
		ids[i] = orders[i].ID
	}

	_, err = r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	if _, derr := r.coll.DeleteMany(cctx, bson.M{"_id": bson.M{"$in": ids}}); derr != nil {
		logger.Error("compensating delete failed", "orderCode", code, "orderIds", ids, "err", derr)
	}
	if _, derr := r.checkouts.DeleteOne(cctx, bson.M{"_id": code}); derr != nil {
		logger.Error("release order code failed", "orderCode", code, "err", derr)
	}

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderCode, code)
	}
	return err
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MongoRepository) Find(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.coll.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) Transition(ctx context.Context, id string, from []domain.Status, to domain.Status, patch domain.Patch) (*domain.Order, error) {
	set := bson.M{"status": string(to), "updatedAt": time.Now().UTC()}
	if patch.PaymentID != "" {
		set["paymentId"] = patch.PaymentID
	}
	if patch.PaymentMethod != "" {
		set["paymentMethod"] = patch.PaymentMethod
	}
	if patch.CancelReason != "" {
		set["cancelReason"] = patch.CancelReason
	}

	guard := bson.M{"_id": id, "status": bson.M{"$in": domain.StatusStrings(from)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var o domain.Order
	err := r.coll.FindOneAndUpdate(ctx, guard, bson.M{"$set": set}, opts).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStatusConflict, id)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func mongoFilter(f domain.Filter) bson.M {
	q := bson.M{}
	if len(f.IDs) > 0 {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	if f.OrderCode != "" {
		q["orderCode"] = f.OrderCode
	}
	if f.UserID != "" {
		q["userId"] = f.UserID
	}
	if f.OwnerID != "" {
		q["ownerId"] = f.OwnerID
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": domain.StatusStrings(f.Statuses)}
	}
	return q
}
