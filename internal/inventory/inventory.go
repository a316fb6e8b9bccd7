package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// ErrInsufficientStock is returned when a product lacks free quantity
var ErrInsufficientStock = errors.New("insufficient stock")

// Service manages stock reservations for refaction lines. All mutations run
// on the caller's transaction so stock moves commit or roll back together
// with the order transition that caused them.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, line *model.RefactionLine) error
	Release(ctx context.Context, tx *gorm.DB, lineID string) error
	ReserveOrder(ctx context.Context, tx *gorm.DB, orderID string) error
	ReleaseOrder(ctx context.Context, tx *gorm.DB, orderID string) error
	ConsumeOrder(ctx context.Context, tx *gorm.DB, orderID string) error
}

type service struct{}

// NewService creates the inventory service
func NewService() Service {
	return &service{}
}

// Reserve puts a hold on the line's product quantity. Idempotent per line:
// an active or consumed reservation row makes this a no-op, a released row is
// reactivated after re-checking stock.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, line *model.RefactionLine) error {
	var existing model.StockReservation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("line_id = ?", line.UUID).
		First(&existing).Error
	if err == nil {
		if existing.Status != model.ReservationReleased {
			return nil
		}
		return s.reactivate(ctx, tx, &existing)
	}
	if !db.IsRecordNotFoundError(err) {
		return err
	}

	var product model.Product
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", line.ProductID).
		First(&product).Error
	if err != nil {
		return errors.Wrap(err, "failed to lock product for reservation")
	}

	if product.QtyOnHand-product.QtyReserved < line.Quantity {
		return ErrInsufficientStock
	}

	reservation := model.StockReservation{
		Base:      model.Base{UUID: uuid.New().String()},
		LineID:    line.UUID,
		OrderID:   line.OrderID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Status:    model.ReservationReserved,
	}
	if err := tx.WithContext(ctx).Create(&reservation).Error; err != nil {
		return errors.Wrap(err, "failed to create stock reservation")
	}

	return tx.WithContext(ctx).Model(&model.Product{}).
		Where("uuid = ?", product.UUID).
		Update("qty_reserved", product.QtyReserved+line.Quantity).Error
}

// Release frees the hold for a single line. Idempotent: already released or
// consumed reservations are left alone.
func (s *service) Release(ctx context.Context, tx *gorm.DB, lineID string) error {
	var reservation model.StockReservation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("line_id = ?", lineID).
		First(&reservation).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil
		}
		return err
	}
	return s.release(ctx, tx, &reservation)
}

// ReserveOrder ensures every refaction line of the order holds stock. Lines
// whose holds were released by an earlier rejection are re-reserved. Called
// when the customer accepts the diagnosis.
func (s *service) ReserveOrder(ctx context.Context, tx *gorm.DB, orderID string) error {
	var lines []model.RefactionLine
	err := tx.WithContext(ctx).Where("order_id = ?", orderID).Find(&lines).Error
	if err != nil {
		return err
	}
	for i := range lines {
		if err := s.Reserve(ctx, tx, &lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseOrder frees all outstanding holds for an order. Used on cancel and
// on diagnosis rejection.
func (s *service) ReleaseOrder(ctx context.Context, tx *gorm.DB, orderID string) error {
	reservations, err := s.lockOrderReservations(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for i := range reservations {
		if err := s.release(ctx, tx, &reservations[i]); err != nil {
			return err
		}
	}
	return nil
}

// ConsumeOrder converts all outstanding holds for an order into real stock
// movements. Called when the order completes.
func (s *service) ConsumeOrder(ctx context.Context, tx *gorm.DB, orderID string) error {
	reservations, err := s.lockOrderReservations(ctx, tx, orderID)
	if err != nil {
		return err
	}

	for i := range reservations {
		reservation := &reservations[i]
		if reservation.Status != model.ReservationReserved {
			continue
		}

		var product model.Product
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("uuid = ?", reservation.ProductID).
			First(&product).Error
		if err != nil {
			return errors.Wrap(err, "failed to lock product for consumption")
		}

		err = tx.WithContext(ctx).Model(&model.Product{}).
			Where("uuid = ?", product.UUID).
			Updates(map[string]interface{}{
				"qty_on_hand":  product.QtyOnHand - reservation.Quantity,
				"qty_reserved": product.QtyReserved - reservation.Quantity,
			}).Error
		if err != nil {
			return errors.Wrap(err, "failed to consume stock")
		}

		err = tx.WithContext(ctx).Model(&model.StockReservation{}).
			Where("uuid = ?", reservation.UUID).
			Update("status", model.ReservationConsumed).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) lockOrderReservations(ctx context.Context, tx *gorm.DB, orderID string) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// reactivate turns a released reservation back into an active hold
func (s *service) reactivate(ctx context.Context, tx *gorm.DB, reservation *model.StockReservation) error {
	var product model.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", reservation.ProductID).
		First(&product).Error
	if err != nil {
		return errors.Wrap(err, "failed to lock product for reservation")
	}

	if product.QtyOnHand-product.QtyReserved < reservation.Quantity {
		return ErrInsufficientStock
	}

	err = tx.WithContext(ctx).Model(&model.Product{}).
		Where("uuid = ?", product.UUID).
		Update("qty_reserved", product.QtyReserved+reservation.Quantity).Error
	if err != nil {
		return err
	}

	return tx.WithContext(ctx).Model(&model.StockReservation{}).
		Where("uuid = ?", reservation.UUID).
		Update("status", model.ReservationReserved).Error
}

func (s *service) release(ctx context.Context, tx *gorm.DB, reservation *model.StockReservation) error {
	if reservation.Status != model.ReservationReserved {
		return nil
	}

	var product model.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", reservation.ProductID).
		First(&product).Error
	if err != nil {
		return errors.Wrap(err, "failed to lock product for release")
	}

	err = tx.WithContext(ctx).Model(&model.Product{}).
		Where("uuid = ?", product.UUID).
		Update("qty_reserved", product.QtyReserved-reservation.Quantity).Error
	if err != nil {
		return err
	}

	return tx.WithContext(ctx).Model(&model.StockReservation{}).
		Where("uuid = ?", reservation.UUID).
		Update("status", model.ReservationReleased).Error
}
