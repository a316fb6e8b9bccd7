package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// SequenceGenerator produces monotonic, human-readable numbers per key
type SequenceGenerator interface {
	Next(ctx context.Context, tx *gorm.DB, key string) (string, error)
}

// sequenceGenerator implements SequenceGenerator on top of a counter table
type sequenceGenerator struct {
	db *gorm.DB
}

// NewSequenceGenerator creates a new sequence generator
func NewSequenceGenerator(gdb *gorm.DB) SequenceGenerator {
	return &sequenceGenerator{db: gdb}
}

// Default prefixes and paddings per sequence key
var sequenceDefaults = map[string]model.Sequence{
	model.SequenceServiceOrder: {Key: model.SequenceServiceOrder, Prefix: "OS", Padding: 5},
	model.SequenceEquipment:    {Key: model.SequenceEquipment, Prefix: "EQ", Padding: 5},
	model.SequenceClient:       {Key: model.SequenceClient, Prefix: "CLI", Padding: 4},
	model.SequenceInvoice:      {Key: model.SequenceInvoice, Prefix: "INV", Padding: 5},
}

// Next atomically increments the counter for the key and returns the
// formatted number. When tx is non-nil the increment joins that transaction
// so the number is rolled back together with the caller's writes. The
// counter row is locked for update to serialize concurrent callers.
func (g *sequenceGenerator) Next(ctx context.Context, tx *gorm.DB, key string) (string, error) {
	conn := tx
	if conn == nil {
		conn = g.db
	}

	var formatted string
	apply := func(inner *gorm.DB) error {
		var seq model.Sequence
		err := inner.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).
			First(&seq).Error
		if db.IsRecordNotFoundError(err) {
			def, ok := sequenceDefaults[key]
			if !ok {
				def = model.Sequence{Key: key, Prefix: "", Padding: 5}
			}
			def.NextNumber = 1
			if err := inner.WithContext(ctx).Create(&def).Error; err != nil {
				return err
			}
			seq = def
		} else if err != nil {
			return err
		}

		formatted = fmt.Sprintf("%s%0*d", seq.Prefix, seq.Padding, seq.NextNumber)
		return inner.WithContext(ctx).Model(&model.Sequence{}).
			Where("key = ?", key).
			Update("next_number", seq.NextNumber+1).Error
	}

	if tx != nil {
		if err := apply(conn); err != nil {
			return "", err
		}
		return formatted, nil
	}

	if err := conn.Transaction(apply); err != nil {
		return "", err
	}
	return formatted, nil
}
