// Package models defines the database models for the slate server
package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/slatehq/slate/pkg/types"
)

// Record is a stored entity row. The domain fields are kept as a JSON
// document so the schema does not need a migration per entity type.
type Record struct {
	gorm.Model
	Type   string `gorm:"index;not null"`
	Fields string `gorm:"type:text"`
}

// NewRecord builds a Record from an entity's domain fields. The "id" and
// "type" keys are carried by the row itself and stripped from the document.
func NewRecord(entityType string, data types.Entity) (*Record, error) {
	doc := make(map[string]any, len(data))
	for k, v := range data {
		if k == "id" || k == "type" {
			continue
		}
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s fields: %w", entityType, err)
	}
	return &Record{Type: entityType, Fields: string(raw)}, nil
}

// Entity converts the row back into an entity value with its id and type.
func (r *Record) Entity() (types.Entity, error) {
	entity := types.Entity{}
	if r.Fields != "" {
		if err := json.Unmarshal([]byte(r.Fields), &entity); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %d: %w", r.Type, r.ID, err)
		}
	}
	entity["id"] = int(r.ID)
	entity["type"] = r.Type
	return entity, nil
}
