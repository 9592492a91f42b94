// Package db keeps persisted blobs in a mongo collection, one document per key.
package db

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const blobCollection = "kv"

type blob struct {
	Key       string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Store struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping MongoDB")
	}
	return &Store{
		Client:     client,
		Collection: client.Database(database).Collection(blobCollection),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var b blob
	err := s.Collection.FindOne(ctx, bson.M{"_id": key}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(b.Data), true, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.Collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		blob{Key: key, Data: string(data), UpdatedAt: time.Now()},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.Collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	cursor, err := s.Collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var b blob
		if err := cursor.Decode(&b); err != nil {
			return nil, err
		}
		keys = append(keys, b.Key)
	}
	return keys, cursor.Err()
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Client.Disconnect(ctx)
}
