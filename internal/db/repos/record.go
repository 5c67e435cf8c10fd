// Package repos provides database repository implementations
package repos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/slatehq/slate/internal/db/models"
	"github.com/slatehq/slate/pkg/types"
)

// RecordRepository handles database operations for entity records
type RecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new instance of RecordRepository
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{
		db: db,
	}
}

// Create stores a new entity of the given type and returns it restricted to
// returnFields (plus id and type, which are always present).
func (r *RecordRepository) Create(ctx context.Context, entityType string, data types.Entity, returnFields []string) (types.Entity, error) {
	record, err := models.NewRecord(entityType, data)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", entityType, err)
	}
	entity, err := record.Entity()
	if err != nil {
		return nil, err
	}
	return selectFields(entity, returnFields), nil
}

// FindOne returns the first stored entity of the given type matching every
// filter clause, restricted to the requested fields. A miss returns
// (nil, nil), not an error.
func (r *RecordRepository) FindOne(ctx context.Context, entityType string, filters []types.Filter, fields []string) (types.Entity, error) {
	var records []models.Record
	err := r.db.WithContext(ctx).
		Where(models.Record{Type: entityType}).
		Order("id").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", entityType, err)
	}

	for i := range records {
		entity, err := records[i].Entity()
		if err != nil {
			return nil, err
		}
		if matches(entity, filters) {
			return selectFields(entity, fields), nil
		}
	}
	return nil, nil
}

// Count returns the number of stored entities of the given type.
func (r *RecordRepository) Count(ctx context.Context, entityType string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Record{}).
		Where(models.Record{Type: entityType}).Count(&n).Error
	return n, err
}

// matches reports whether the entity satisfies every filter clause. Only the
// "is" operator is supported; an unknown operator never matches.
func matches(entity types.Entity, filters []types.Filter) bool {
	for _, f := range filters {
		if f.Operator() != "is" {
			return false
		}
		if !valuesEqual(entity[f.Field()], f.Value()) {
			return false
		}
	}
	return true
}

// valuesEqual compares two field values. Entity links compare by id and
// type only, the way the server schema treats references; everything else
// compares by canonical JSON form so int/float64 representations of the
// same number are equal.
func valuesEqual(a, b any) bool {
	if am, ok := asEntity(a); ok {
		if bm, ok := asEntity(b); ok {
			return am.ID() == bm.ID() && am.Type() == bm.Type()
		}
		return false
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

func asEntity(v any) (types.Entity, bool) {
	switch m := v.(type) {
	case types.Entity:
		_, ok := m["id"]
		return m, ok
	case map[string]any:
		_, ok := m["id"]
		return types.Entity(m), ok
	default:
		return nil, false
	}
}

// selectFields restricts an entity to the requested fields. The id and type
// keys always survive.
func selectFields(entity types.Entity, fields []string) types.Entity {
	if len(fields) == 0 {
		return entity
	}
	out := types.Entity{"id": entity["id"], "type": entity["type"]}
	for _, f := range fields {
		if v, ok := entity[f]; ok {
			out[f] = v
		}
	}
	return out
}
