package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	legio "github.com/matzehuels/legsim/pkg/io"
)

// Collection holds committed specs in the configured database.
const Collection = "specs"

// MongoStore keeps records in a MongoDB collection. The spec and poses are
// stored as nested documents with the same field names as the JSON form.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	Spec      bson.D    `bson:"spec"`
	Poses     bson.D    `bson:"poses,omitempty"`
}

// NewMongoStore connects to uri and checks the server answers.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(Collection),
		now:    time.Now,
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, rec *Record) error {
	spec, err := prepare(rec, s.now())
	if err != nil {
		return err
	}
	doc := mongoRecord{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}
	if doc.Spec, err = toDoc(spec); err != nil {
		return err
	}
	if rec.Poses != nil {
		poses, err := json.Marshal(rec.Poses)
		if err != nil {
			return err
		}
		if doc.Poses, err = toDoc(poses); err != nil {
			return err
		}
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Load(ctx context.Context, id string) (*Record, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	raw, err := fromDoc(doc.Spec)
	if err != nil {
		return nil, err
	}
	spec, err := legio.UnmarshalSpec(raw)
	if err != nil {
		return nil, legerr.Wrap(legerr.ErrCodeInternal, err, "stored spec %s", id)
	}
	rec := &Record{ID: doc.ID, Name: doc.Name, CreatedAt: doc.CreatedAt, Spec: spec}
	if doc.Poses != nil {
		raw, err := fromDoc(doc.Poses)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.Poses); err != nil {
			return nil, legerr.Wrap(legerr.ErrCodeInternal, err, "stored poses %s", id)
		}
	}
	return rec, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"poses": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(docs))
	for _, d := range docs {
		raw, err := fromDoc(d.Spec)
		if err != nil {
			return nil, err
		}
		sum, err := summarize(d.ID, d.Name, d.CreatedAt, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toDoc converts JSON to a BSON document via relaxed extended JSON.
func toDoc(data []byte) (bson.D, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("to bson: %w", err)
	}
	return d, nil
}

func fromDoc(d bson.D) ([]byte, error) {
	data, err := bson.MarshalExtJSON(d, false, false)
	if err != nil {
		return nil, fmt.Errorf("from bson: %w", err)
	}
	return data, nil
}

var _ Store = (*MongoStore)(nil)
