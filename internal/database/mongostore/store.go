// Package mongostore is a MongoDB-backed store.RecordStore. Document field
// names are the model's bson tags, which match the SQL column names, so the
// same queries run against either backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"neighborfit/server/internal/models"
	"neighborfit/server/internal/store"
)

const (
	idField        = "id"
	documentID     = "_id"
	insertionOrder = "created_at"
	textIndexName  = "idx_neighborhoods_text"
)

// Store implements store.RecordStore over one collection.
type Store[T any] struct {
	collection *mongo.Collection
	logger     *logrus.Logger
	fields     map[string]bool

	textFields []string
	textScope  []store.Condition
	fullText   bool
}

// Connect opens a client and verifies the deployment is reachable.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

func New[T any](collection *mongo.Collection, logger *logrus.Logger) *Store[T] {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Store[T]{
		collection: collection,
		logger:     logger,
		fields:     bsonFields(reflect.TypeOf((*T)(nil)).Elem()),
	}
}

// NewNeighborhoodStore returns the neighborhood store. Text search covers
// name and description and is restricted to active records.
func NewNeighborhoodStore(db *mongo.Database, collectionName string, logger *logrus.Logger) *Store[models.Neighborhood] {
	s := New[models.Neighborhood](db.Collection(collectionName), logger)
	s.textFields = []string{"name", "description"}
	s.textScope = []store.Condition{store.Eq("is_active", true)}
	return s
}

// EnsureIndexes creates the query indexes. Full-text search is enabled only
// once its text index exists.
func (s *Store[T]) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: insertionOrder, Value: 1}},
			Options: options.Index().SetName("idx_neighborhoods_active_created"),
		},
		{
			Keys:    bson.D{{Key: "city", Value: 1}, {Key: "state", Value: 1}},
			Options: options.Index().SetName("idx_neighborhoods_location"),
		},
		{
			Keys:    bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}},
			Options: options.Index().SetName("idx_neighborhoods_coordinates"),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	if len(s.textFields) == 0 {
		return nil
	}
	keys := bson.D{}
	for _, f := range s.textFields {
		keys = append(keys, bson.E{Key: f, Value: "text"})
	}
	if _, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(textIndexName),
	}); err != nil {
		s.logger.WithError(err).Warn("Text index unavailable, text search will use name matching")
		return nil
	}
	s.fullText = true
	return nil
}

func (s *Store[T]) FindWhere(ctx context.Context, q store.Query) ([]T, error) {
	filter, err := s.buildFilter(q.Conditions, q.Within)
	if err != nil {
		return nil, err
	}
	opts, err := s.findOptions(q)
	if err != nil {
		return nil, err
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateError("find", err)
	}
	return decodeAll[T](ctx, cursor)
}

func (s *Store[T]) Insert(ctx context.Context, record *T) (*T, error) {
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return nil, translateError("insert", err)
	}
	return record, nil
}

func (s *Store[T]) Update(ctx context.Context, id string, fields map[string]interface{}) (*T, error) {
	set := bson.M{}
	for field, value := range fields {
		if !s.fields[field] || field == idField {
			return nil, fmt.Errorf("%w: cannot update field %q", store.ErrInvalidQuery, field)
		}
		set[field] = value
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out T
	err := s.collection.FindOneAndUpdate(ctx, bson.M{documentID: id}, bson.M{"$set": set}, opts).Decode(&out)
	if err != nil {
		return nil, translateError("update", err)
	}
	return &out, nil
}

func (s *Store[T]) FullTextSearch(ctx context.Context, term string, limit, offset int) ([]T, error) {
	if !s.fullText {
		return nil, store.ErrFullTextUnsupported
	}

	filter, err := s.buildFilter(s.textScope, nil)
	if err != nil {
		return nil, err
	}
	filter["$text"] = bson.M{"$search": term}

	opts, err := s.findOptions(store.Query{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateError("full-text search", err)
	}
	return decodeAll[T](ctx, cursor)
}

// buildFilter merges conditions on the same field into one operator document.
func (s *Store[T]) buildFilter(conditions []store.Condition, within *orb.Bound) (bson.M, error) {
	filter := bson.M{}
	operators := func(field string) bson.M {
		if existing, ok := filter[field].(bson.M); ok {
			return existing
		}
		m := bson.M{}
		filter[field] = m
		return m
	}

	for _, c := range conditions {
		if !s.fields[c.Field] {
			return nil, fmt.Errorf("%w: unknown field %q", store.ErrInvalidQuery, c.Field)
		}
		field := c.Field
		if field == idField {
			field = documentID
		}

		switch c.Op {
		case store.OpEq:
			operators(field)["$eq"] = c.Value
		case store.OpGte:
			operators(field)["$gte"] = c.Value
		case store.OpLte:
			operators(field)["$lte"] = c.Value
		case store.OpContains:
			term, ok := c.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: contains needs a string for %q", store.ErrInvalidQuery, c.Field)
			}
			ops := operators(field)
			ops["$regex"] = regexp.QuoteMeta(term)
			ops["$options"] = "i"
		default:
			return nil, fmt.Errorf("%w: unsupported operator %q", store.ErrInvalidQuery, c.Op)
		}
	}

	if within != nil {
		if !s.fields["latitude"] || !s.fields["longitude"] {
			return nil, fmt.Errorf("%w: collection has no coordinates", store.ErrInvalidQuery)
		}
		// Range operators never match null, so records without coordinates drop out
		lat := operators("latitude")
		lat["$gte"], lat["$lte"] = within.Min.Lat(), within.Max.Lat()
		lng := operators("longitude")
		lng["$gte"], lng["$lte"] = within.Min.Lon(), within.Max.Lon()
	}
	return filter, nil
}

func (s *Store[T]) findOptions(q store.Query) (*options.FindOptions, error) {
	sort := bson.D{}
	if q.OrderBy != nil {
		if !s.fields[q.OrderBy.Field] {
			return nil, fmt.Errorf("%w: unknown field %q", store.ErrInvalidQuery, q.OrderBy.Field)
		}
		direction := 1
		if q.OrderBy.Descending {
			direction = -1
		}
		sort = append(sort, bson.E{Key: q.OrderBy.Field, Value: direction})
	}
	if s.fields[insertionOrder] && (q.OrderBy == nil || q.OrderBy.Field != insertionOrder) {
		sort = append(sort, bson.E{Key: insertionOrder, Value: 1})
	}

	opts := options.Find().SetSort(sort)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	return opts, nil
}

func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)

	out := make([]T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, translateError("decode", err)
		}
		out = append(out, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, translateError("cursor", err)
	}
	return out, nil
}

func translateError(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", op, store.ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
}

// bsonFields lists the queryable field names of a struct, reporting the
// document ID under the store-wide name "id".
func bsonFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("bson")
		name := strings.Split(tag, ",")[0]
		if name == "" || name == "-" {
			continue
		}
		if name == documentID {
			name = idField
		}
		fields[name] = true
	}
	return fields
}
