// Package audit mirrors cancellation, close and reopen events into a document store
// for later inspection. The SQL store remains the system of record.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ActionLineCancelled = "line-cancelled"
	ActionTableClosed   = "table-closed"
	ActionTableReopened = "table-reopened"
)

type Entry struct {
	Action    string
	EntityID  string
	Data      map[string]any
	CreatedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Log is the stored document.
type Log struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entityId"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

func newLog(service string, e Entry) *Log {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	data := bson.M{}
	for k, v := range e.Data {
		data[k] = v
	}
	return &Log{
		ID:        uuid.NewString(),
		Service:   service,
		Action:    e.Action,
		EntityID:  e.EntityID,
		Data:      data,
		CreatedAt: created.UTC(),
	}
}

type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	service    string
}

func NewMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(collection),
		service:    "tpv",
	}, nil
}

func (m *Mongo) Record(ctx context.Context, e Entry) error {
	_, err := m.collection.InsertOne(ctx, newLog(m.service, e))
	return err
}

// Recent returns the newest entries, optionally for one entity.
func (m *Mongo) Recent(ctx context.Context, entityID string, limit int64) ([]*Log, error) {
	filter := bson.M{}
	if entityID != "" {
		filter["entity_id"] = entityID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*Log
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
