package odm

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBackend opens collections of one database on a MongoDB server.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials uri and selects database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}
	return &MongoBackend{client: client, db: client.Database(database)}, nil
}

func (b *MongoBackend) DatabaseName() string { return b.db.Name() }

func (b *MongoBackend) Collection(name string) Collection {
	return &MongoCollection{coll: b.db.Collection(name)}
}

func (b *MongoBackend) Close(ctx context.Context) error { return b.client.Disconnect(ctx) }

// MongoCollection forwards to a driver collection and converts unique
// index violations into *DuplicateKeyError.
type MongoCollection struct {
	coll *mongo.Collection
}

func (c *MongoCollection) Name() string { return c.coll.Name() }

func (c *MongoCollection) InsertOne(ctx context.Context, doc Document) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return convertMongoError(err)
}

func (c *MongoCollection) FindOne(ctx context.Context, filter Document) (Document, error) {
	var out bson.M
	err := c.coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return NormalizeDocument(out), nil
}

func (c *MongoCollection) Find(ctx context.Context, filter Document, opts FindOptions) ([]Document, error) {
	fo := options.Find()
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if len(opts.Sort) > 0 {
		fo.SetSort(opts.Sort)
	}
	if len(opts.Projection) > 0 {
		proj := bson.M{}
		for _, f := range opts.Projection {
			proj[f] = 1
		}
		fo.SetProjection(proj)
	}
	cur, err := c.coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, NormalizeDocument(m))
	}
	return out, nil
}

func (c *MongoCollection) CountDocuments(ctx context.Context, filter Document) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c *MongoCollection) UpdateOne(ctx context.Context, filter Document, set Document) (bool, error) {
	res, err := c.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, convertMongoError(err)
	}
	return res.MatchedCount > 0, nil
}

func (c *MongoCollection) DeleteOne(ctx context.Context, filter Document) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *MongoCollection) EnsureUnique(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(paths))
	for _, p := range paths {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: p, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		})
	}
	if _, err := c.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create unique indexes on %s: %w", c.coll.Name(), err)
	}
	return nil
}

// convertMongoError turns an E11000 reply into *DuplicateKeyError, reading
// keyValue from the raw server error when the server sent one.
func convertMongoError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	dup := &DuplicateKeyError{Code: DuplicateKeyCode, Message: err.Error()}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code != DuplicateKeyCode {
				continue
			}
			dup.Message = e.Message
			if rv, lookupErr := e.Raw.LookupErr("keyValue"); lookupErr == nil && rv.Type == bsontype.EmbeddedDocument {
				var kv bson.M
				if rv.Unmarshal(&kv) == nil {
					dup.KeyValue = NormalizeDocument(kv)
				}
			}
			break
		}
	}
	return dup
}
