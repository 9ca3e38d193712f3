package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documentValidationFailure is the server error code for a $jsonSchema rejection.
const documentValidationFailure = 121

// invalidRegex is the server error code for a $regex the server cannot compile.
const invalidRegex = 51091

type mongoBook struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Title         string             `bson:"title"`
	Author        string             `bson:"author"`
	Genre         string             `bson:"genre,omitempty"`
	PublishedYear *int               `bson:"publishedYear,omitempty"`
	Version       int64              `bson:"version"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d mongoBook) toBook() Book {
	return Book{
		ID:            d.ID.Hex(),
		Title:         d.Title,
		Author:        d.Author,
		Genre:         d.Genre,
		PublishedYear: d.PublishedYear,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type MongoRepo struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

func NewMongoRepo(coll *mongo.Collection, timeout time.Duration) *MongoRepo {
	return &MongoRepo{
		coll:    coll,
		timeout: timeout,
		// BSON dates carry millisecond precision.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (r *MongoRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *MongoRepo) Find(ctx context.Context, f Filter, b Bounds) ([]Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(b.Skip)).
		SetLimit(int64(b.Limit))

	cur, err := r.coll.Find(ctx, f.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", classifyQueryError(err))
	}
	var docs []mongoBook
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode books: %w", classifyQueryError(err))
	}

	out := make([]Book, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toBook())
	}
	return out, nil
}

func (r *MongoRepo) Count(ctx context.Context, f Filter) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, f.BSON())
	if err != nil {
		return 0, fmt.Errorf("count books: %w", classifyQueryError(err))
	}
	return int(n), nil
}

func (r *MongoRepo) FindByID(ctx context.Context, id string) (Book, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return Book{}, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var d mongoBook
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("find book %s: %w", id, err)
	}
	return d.toBook(), nil
}

func (r *MongoRepo) Save(ctx context.Context, b *Book) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if b.ID == "" {
		return r.insert(ctx, b)
	}
	return r.update(ctx, b)
}

func (r *MongoRepo) insert(ctx context.Context, b *Book) error {
	now := r.now()
	d := mongoBook{
		ID:            primitive.NewObjectID(),
		Title:         b.Title,
		Author:        b.Author,
		Genre:         b.Genre,
		PublishedYear: b.PublishedYear,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("insert book: %w", classifyWriteError(err))
	}
	*b = d.toBook()
	return nil
}

func (r *MongoRepo) update(ctx context.Context, b *Book) error {
	oid, err := parseObjectID(b.ID)
	if err != nil {
		return err
	}

	now := r.now()
	set := bson.M{
		"title":         b.Title,
		"author":        b.Author,
		"genre":         b.Genre,
		"publishedYear": b.PublishedYear,
		"updatedAt":     now,
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "version": b.Version},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return fmt.Errorf("update book %s: %w", b.ID, classifyWriteError(err))
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("update book %s: %w", b.ID, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	b.Version++
	b.UpdatedAt = now
	return nil
}

func (r *MongoRepo) Remove(ctx context.Context, b Book) error {
	oid, err := parseObjectID(b.ID)
	if err != nil {
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete book %s: %w", b.ID, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes used by list filters and paging.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}}, Options: options.Index().SetName("author_1")},
		{Keys: bson.D{{Key: "genre", Value: 1}}, Options: options.Index().SetName("genre_1")},
	})
}

// Ping checks that the deployment behind the collection is reachable.
func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func classifyQueryError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(invalidRegex) {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, err)
	}
	return err
}

func classifyWriteError(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == documentValidationFailure {
				return fmt.Errorf("%w: %s", ErrInvalidDocument, e.Message)
			}
		}
	}
	return err
}
