// Package store defines the record store capability the neighborhood engine
// runs against. Implementations live in internal/database.
package store

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
)

var (
	ErrUnavailable         = errors.New("store unavailable")
	ErrNotFound            = errors.New("record not found")
	ErrDuplicate           = errors.New("record already exists")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrFullTextUnsupported = errors.New("full-text search not supported")
)

// Op is a comparison applied by a Condition.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
	// OpContains is a case-insensitive substring match on a text column.
	OpContains Op = "contains"
)

// Condition compares one storage column against a value.
type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

func Gte(field string, value interface{}) Condition {
	return Condition{Field: field, Op: OpGte, Value: value}
}

func Lte(field string, value interface{}) Condition {
	return Condition{Field: field, Op: OpLte, Value: value}
}

func Contains(field, value string) Condition {
	return Condition{Field: field, Op: OpContains, Value: value}
}

// Order sorts results by one column. Ties keep insertion order.
type Order struct {
	Field      string
	Descending bool
}

// Query is a conjunction of conditions with optional ordering and paging.
// Within restricts latitude/longitude to an inclusive rectangle; records
// without coordinates never match it.
type Query struct {
	Conditions []Condition
	Within     *orb.Bound
	OrderBy    *Order
	Limit      int
	Offset     int
}

// RecordStore persists records of type T.
type RecordStore[T any] interface {
	FindWhere(ctx context.Context, q Query) ([]T, error)
	Insert(ctx context.Context, record *T) (*T, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (*T, error)
	FullTextSearch(ctx context.Context, term string, limit, offset int) ([]T, error)
}
