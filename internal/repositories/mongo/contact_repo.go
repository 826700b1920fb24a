package mongo

import (
	"context"
	"time"

	"github.com/yoockh/jobsphere/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ContactCollection = "contact_messages"
	ContactRetention  = 90 * 24 * time.Hour
)

type ContactRepository interface {
	Insert(ctx context.Context, m *models.ContactMessage) error
	List(ctx context.Context, limit int64) ([]models.ContactMessage, error)
}

type contactRepo struct {
	col *mongo.Collection
}

func NewContactRepo(db *mongo.Database) ContactRepository {
	return &contactRepo{col: db.Collection(ContactCollection)}
}

func (r *contactRepo) Insert(ctx context.Context, m *models.ContactMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.ExpiresAt.IsZero() {
		m.ExpiresAt = m.CreatedAt.Add(ContactRetention)
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *contactRepo) List(ctx context.Context, limit int64) ([]models.ContactMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := r.col.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ContactMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
