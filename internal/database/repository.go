package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neighborfit/server/internal/models"
	"neighborfit/server/internal/store"
)

// Repository is a gorm-backed store.RecordStore for one model type. Columns
// named in queries are checked against the model's schema.
type Repository[T any] struct {
	db         *gorm.DB
	table      string
	primaryKey string
	columns    map[string]bool

	textIndex string
	textScope []store.Condition
}

// TextIndex names an FTS table keyed by the model's primary key, plus
// conditions every full-text result must also satisfy.
type TextIndex struct {
	Table string
	Scope []store.Condition
}

func NewRepository[T any](d *Database, textIndex *TextIndex) (*Repository[T], error) {
	stmt := &gorm.Statement{DB: d.db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("failed to parse model schema: %w", err)
	}

	columns := make(map[string]bool, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		columns[name] = true
	}

	primaryKey := "id"
	if stmt.Schema.PrioritizedPrimaryField != nil {
		primaryKey = stmt.Schema.PrioritizedPrimaryField.DBName
	}

	r := &Repository[T]{
		db:         d.db,
		table:      stmt.Schema.Table,
		primaryKey: primaryKey,
		columns:    columns,
	}
	if textIndex != nil && d.FullTextEnabled() {
		r.textIndex = textIndex.Table
		r.textScope = textIndex.Scope
	}
	return r, nil
}

// NewNeighborhoodStore returns the neighborhood repository with its text index
// restricted to active records.
func NewNeighborhoodStore(d *Database) (*Repository[models.Neighborhood], error) {
	return NewRepository[models.Neighborhood](d, &TextIndex{
		Table: textIndexTable,
		Scope: []store.Condition{store.Eq("is_active", true)},
	})
}

func (r *Repository[T]) FindWhere(ctx context.Context, q store.Query) ([]T, error) {
	tx := r.db.WithContext(ctx).Model(new(T))

	tx, err := r.applyConditions(tx, q.Conditions, "")
	if err != nil {
		return nil, err
	}

	if q.Within != nil {
		if !r.columns["latitude"] || !r.columns["longitude"] {
			return nil, fmt.Errorf("%w: %s has no coordinates", store.ErrInvalidQuery, r.table)
		}
		b := q.Within
		tx = tx.Where("latitude IS NOT NULL AND longitude IS NOT NULL").
			Where("latitude BETWEEN ? AND ?", b.Min.Lat(), b.Max.Lat()).
			Where("longitude BETWEEN ? AND ?", b.Min.Lon(), b.Max.Lon())
	}

	if q.OrderBy != nil {
		if !r.columns[q.OrderBy.Field] {
			return nil, fmt.Errorf("%w: unknown column %q", store.ErrInvalidQuery, q.OrderBy.Field)
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: q.OrderBy.Field},
			Desc:   q.OrderBy.Descending,
		}).Order("rowid")
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	var out []T
	if err := tx.Find(&out).Error; err != nil {
		return nil, translateError("find", err)
	}
	return out, nil
}

func (r *Repository[T]) Insert(ctx context.Context, record *T) (*T, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, translateError("insert", err)
	}
	return record, nil
}

func (r *Repository[T]) Update(ctx context.Context, id string, fields map[string]interface{}) (*T, error) {
	for column := range fields {
		if !r.columns[column] || column == r.primaryKey {
			return nil, fmt.Errorf("%w: cannot update column %q", store.ErrInvalidQuery, column)
		}
	}

	db := r.db.WithContext(ctx)
	res := db.Model(new(T)).Where(clause.Eq{Column: clause.Column{Name: r.primaryKey}, Value: id}).Updates(fields)
	if res.Error != nil {
		return nil, translateError("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}

	var out T
	if err := db.Where(clause.Eq{Column: clause.Column{Name: r.primaryKey}, Value: id}).First(&out).Error; err != nil {
		return nil, translateError("update", err)
	}
	return &out, nil
}

// FullTextSearch matches term against the FTS table. A malformed term is
// reported as an error by SQLite.
func (r *Repository[T]) FullTextSearch(ctx context.Context, term string, limit, offset int) ([]T, error) {
	if r.textIndex == "" {
		return nil, store.ErrFullTextUnsupported
	}

	tx := r.db.WithContext(ctx).Model(new(T)).
		Select(r.table+".*").
		Joins(fmt.Sprintf("JOIN %s ON %s.id = %s.%s", r.textIndex, r.textIndex, r.table, r.primaryKey)).
		Where(r.textIndex+" MATCH ?", term)

	tx, err := r.applyConditions(tx, r.textScope, r.table+".")
	if err != nil {
		return nil, err
	}

	tx = tx.Order(r.table + ".rowid")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}

	var out []T
	if err := tx.Find(&out).Error; err != nil {
		return nil, translateError("full-text search", err)
	}
	return out, nil
}

func (r *Repository[T]) applyConditions(tx *gorm.DB, conditions []store.Condition, qualifier string) (*gorm.DB, error) {
	for _, c := range conditions {
		if !r.columns[c.Field] {
			return nil, fmt.Errorf("%w: unknown column %q", store.ErrInvalidQuery, c.Field)
		}
		column := qualifier + c.Field

		switch c.Op {
		case store.OpEq:
			tx = tx.Where(column+" = ?", c.Value)
		case store.OpGte:
			tx = tx.Where(column+" >= ?", c.Value)
		case store.OpLte:
			tx = tx.Where(column+" <= ?", c.Value)
		case store.OpContains:
			s, ok := c.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: contains needs a string for %q", store.ErrInvalidQuery, c.Field)
			}
			tx = tx.Where("LOWER("+column+") LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(s))+"%")
		default:
			return nil, fmt.Errorf("%w: unsupported operator %q", store.ErrInvalidQuery, c.Op)
		}
	}
	return tx, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func translateError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w: %w", op, store.ErrDuplicate, err)
		}
		return fmt.Errorf("%s: %w: %w", op, store.ErrInvalidQuery, err)
	}

	return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
}
