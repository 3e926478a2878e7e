// internal/services/fulfillment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gvoiceus/gvoiceus-backend/internal/database"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

var (
	ErrFileLocked   = errors.New("a file has already been uploaded for this item")
	ErrOrderNotPaid = errors.New("order is not paid")
	ErrNoStoredFile = errors.New("no file stored in this slot")
)

// File slots on an order item.
const (
	FileSlotDelivery = "delivery"
	FileSlotUser     = "user"
)

// FulfillmentService moves files between buyers and staff on paid
// orders. Staff attach deliverables per item or for the whole order;
// buyers upload one customization file per item, exactly once.
type FulfillmentService struct {
	db      *gorm.DB
	storage *StorageService
	log     *logrus.Entry
}

func NewFulfillmentService(db *gorm.DB, storage *StorageService) *FulfillmentService {
	return &FulfillmentService{
		db:      db,
		storage: storage,
		log:     logrus.WithField("service", "fulfillment"),
	}
}

// UploadUserFile stores the buyer's customization file for one order
// item. The slot is write-once: once anything has been uploaded the
// item stays locked, even after staff delete the file. Items on other
// users' orders are reported as not found rather than forbidden.
func (s *FulfillmentService) UploadUserFile(ctx context.Context, userID, itemID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.OrderItem, []string, error) {
	item, order, err := s.loadItem(itemID)
	if err != nil {
		return nil, nil, err
	}
	if order.UserID != userID {
		return nil, nil, ErrOrderNotFound
	}
	if order.Status != models.OrderStatusPaid {
		return nil, nil, ErrOrderNotPaid
	}
	if item.UserFileLocked() {
		return nil, nil, ErrFileLocked
	}

	key := s.storage.OrderFileKey(order.Code, userSlot(item.ID), header.Filename)
	stored, warnings, err := s.storage.Save(ctx, key, file, header, s.storage.DefaultUploadPolicy())
	if err != nil {
		return nil, warnings, err
	}

	now := time.Now().UTC()
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var current models.OrderItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", item.ID).Error; err != nil {
			return err
		}
		if current.UserFileUploadedAt != nil {
			return ErrFileLocked
		}
		current.UserFile = models.StoredFile{
			Key:         stored.Key,
			Name:        stored.Name,
			Size:        stored.Size,
			ContentType: stored.ContentType,
		}
		current.UserFileUploadedAt = &now
		if err := tx.Save(&current).Error; err != nil {
			return err
		}
		*item = current
		return nil
	})
	if err != nil {
		// Lost the race or the write failed; don't leave the object behind.
		if delErr := s.storage.Delete(ctx, stored.Key); delErr != nil {
			s.log.WithError(delErr).WithField("key", stored.Key).Warn("Failed to clean up orphaned upload")
		}
		return nil, warnings, err
	}

	s.log.WithFields(logrus.Fields{
		"order":   order.Code,
		"item_id": item.ID,
		"key":     stored.Key,
		"size":    stored.Size,
	}).Info("Customer file uploaded")

	return item, warnings, nil
}

// AttachItemDeliveryFile stores a staff deliverable on one order item,
// replacing any previous file. Paid orders flip to complete once every
// item carries a deliverable.
func (s *FulfillmentService) AttachItemDeliveryFile(ctx context.Context, itemID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.OrderItem, []string, error) {
	item, order, err := s.loadItem(itemID)
	if err != nil {
		return nil, nil, err
	}

	key := s.storage.OrderFileKey(order.Code, deliverySlot(item.ID), header.Filename)
	stored, warnings, err := s.storage.Save(ctx, key, file, header, s.storage.DefaultUploadPolicy())
	if err != nil {
		return nil, warnings, err
	}

	previous := item.DeliveryFile.Key
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"delivery_file_key":          stored.Key,
			"delivery_file_name":         stored.Name,
			"delivery_file_size":         stored.Size,
			"delivery_file_content_type": stored.ContentType,
		}).Error; err != nil {
			return err
		}
		return s.syncFulfillment(tx, order.ID)
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, stored.Key); delErr != nil {
			s.log.WithError(delErr).WithField("key", stored.Key).Warn("Failed to clean up orphaned upload")
		}
		return nil, warnings, err
	}

	if previous != "" && previous != stored.Key {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.log.WithError(err).WithField("key", previous).Warn("Failed to delete replaced delivery file")
		}
	}

	item.DeliveryFile = models.StoredFile{
		Key:         stored.Key,
		Name:        stored.Name,
		Size:        stored.Size,
		ContentType: stored.ContentType,
	}
	s.log.WithFields(logrus.Fields{
		"order":   order.Code,
		"item_id": item.ID,
		"key":     stored.Key,
	}).Info("Item delivery file attached")

	return item, warnings, nil
}

// AttachOrderDeliveryFile stores a single deliverable covering the
// whole order. A paid order becomes complete immediately.
func (s *FulfillmentService) AttachOrderDeliveryFile(ctx context.Context, orderID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.Order, []string, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}

	key := s.storage.OrderFileKey(order.Code, "order", header.Filename)
	stored, warnings, err := s.storage.Save(ctx, key, file, header, s.storage.DefaultUploadPolicy())
	if err != nil {
		return nil, warnings, err
	}

	previous := order.DeliveryFile.Key
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"delivery_file_key":          stored.Key,
			"delivery_file_name":         stored.Name,
			"delivery_file_size":         stored.Size,
			"delivery_file_content_type": stored.ContentType,
		}).Error; err != nil {
			return err
		}
		return s.syncFulfillment(tx, order.ID)
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, stored.Key); delErr != nil {
			s.log.WithError(delErr).WithField("key", stored.Key).Warn("Failed to clean up orphaned upload")
		}
		return nil, warnings, err
	}

	if previous != "" && previous != stored.Key {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.log.WithError(err).WithField("key", previous).Warn("Failed to delete replaced delivery file")
		}
	}

	order.DeliveryFile = models.StoredFile{
		Key:         stored.Key,
		Name:        stored.Name,
		Size:        stored.Size,
		ContentType: stored.ContentType,
	}
	if err := s.db.First(&order, "id = ?", order.ID).Error; err != nil {
		return nil, warnings, err
	}

	s.log.WithFields(logrus.Fields{
		"order": order.Code,
		"key":   stored.Key,
	}).Info("Order delivery file attached")

	return &order, warnings, nil
}

// DeleteItemFile removes the stored object in the given slot. Deleting
// a user file does not unlock the slot.
func (s *FulfillmentService) DeleteItemFile(ctx context.Context, itemID uuid.UUID, slot string) error {
	item, order, err := s.loadItem(itemID)
	if err != nil {
		return err
	}

	var stored models.StoredFile
	updates := map[string]interface{}{}
	switch slot {
	case FileSlotDelivery:
		stored = item.DeliveryFile
		updates["delivery_file_key"] = ""
		updates["delivery_file_name"] = ""
		updates["delivery_file_size"] = 0
		updates["delivery_file_content_type"] = ""
	case FileSlotUser:
		stored = item.UserFile
		updates["user_file_key"] = ""
		updates["user_file_name"] = ""
		updates["user_file_size"] = 0
		updates["user_file_content_type"] = ""
	default:
		return fmt.Errorf("unknown file slot %q", slot)
	}
	if stored.Empty() {
		return ErrNoStoredFile
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
			return err
		}
		if slot == FileSlotDelivery {
			return s.syncFulfillment(tx, order.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, stored.Key); err != nil {
		s.log.WithError(err).WithField("key", stored.Key).Warn("Failed to delete stored object")
	}
	s.log.WithFields(logrus.Fields{
		"order":   order.Code,
		"item_id": item.ID,
		"slot":    slot,
	}).Info("Item file deleted")
	return nil
}

// DeleteOrderDeliveryFile removes the order-level deliverable.
func (s *FulfillmentService) DeleteOrderDeliveryFile(ctx context.Context, orderID uuid.UUID) error {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.DeliveryFile.Empty() {
		return ErrNoStoredFile
	}

	key := order.DeliveryFile.Key
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"delivery_file_key":          "",
			"delivery_file_name":         "",
			"delivery_file_size":         0,
			"delivery_file_content_type": "",
		}).Error; err != nil {
			return err
		}
		return s.syncFulfillment(tx, order.ID)
	})
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to delete stored object")
	}
	s.log.WithField("order", order.Code).Info("Order delivery file deleted")
	return nil
}

// OpenItemFile streams the stored object in the given slot. Buyers see
// their own items only, and delivery files only once the order is paid;
// anything else is reported as not found.
func (s *FulfillmentService) OpenItemFile(ctx context.Context, actorID uuid.UUID, staff bool, itemID uuid.UUID, slot string) (io.ReadCloser, *models.StoredFile, error) {
	item, order, err := s.loadItem(itemID)
	if err != nil {
		return nil, nil, err
	}
	if !staff && order.UserID != actorID {
		return nil, nil, ErrOrderNotFound
	}

	var stored models.StoredFile
	switch slot {
	case FileSlotDelivery:
		if !staff && order.Status != models.OrderStatusPaid {
			return nil, nil, ErrOrderNotFound
		}
		stored = item.DeliveryFile
	case FileSlotUser:
		stored = item.UserFile
	default:
		return nil, nil, fmt.Errorf("unknown file slot %q", slot)
	}
	if stored.Empty() {
		return nil, nil, ErrNoStoredFile
	}

	rc, err := s.storage.Open(ctx, stored.Key)
	if err != nil {
		return nil, nil, err
	}
	return rc, &stored, nil
}

// OpenOrderDeliveryFile streams the order-level deliverable under the
// same visibility rules as OpenItemFile.
func (s *FulfillmentService) OpenOrderDeliveryFile(ctx context.Context, actorID uuid.UUID, staff bool, orderID uuid.UUID) (io.ReadCloser, *models.StoredFile, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	if !staff && order.UserID != actorID {
		return nil, nil, ErrOrderNotFound
	}
	if !staff && order.Status != models.OrderStatusPaid {
		return nil, nil, ErrOrderNotFound
	}
	if order.DeliveryFile.Empty() {
		return nil, nil, ErrNoStoredFile
	}

	rc, err := s.storage.Open(ctx, order.DeliveryFile.Key)
	if err != nil {
		return nil, nil, err
	}
	stored := order.DeliveryFile
	return rc, &stored, nil
}

// SetFulfillment lets staff override the fulfillment state of a paid
// order, for deliveries that happen outside the file exchange.
func (s *FulfillmentService) SetFulfillment(orderID uuid.UUID, status models.FulfillmentStatus) (*models.Order, error) {
	if status != models.FulfillmentRunning && status != models.FulfillmentComplete {
		return nil, fmt.Errorf("unknown fulfillment status %q", status)
	}

	var order models.Order
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status != models.OrderStatusPaid {
			return ErrOrderNotPaid
		}
		order.Fulfillment = status
		return tx.Model(&order).Update("fulfillment", status).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order":       order.Code,
		"fulfillment": status,
	}).Info("Fulfillment status set by staff")
	return &order, nil
}

// syncFulfillment recomputes the fulfillment state of a paid order from
// its files: complete when an order-level deliverable exists or every
// item carries one, running otherwise. Unpaid orders are left alone.
func (s *FulfillmentService) syncFulfillment(tx *gorm.DB, orderID uuid.UUID) error {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error; err != nil {
		return err
	}
	if order.Status != models.OrderStatusPaid {
		return nil
	}

	complete := order.DeliveryFile.Key != ""
	if !complete {
		var missing int64
		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND (delivery_file_key IS NULL OR delivery_file_key = '')", orderID).
			Count(&missing).Error; err != nil {
			return err
		}
		complete = missing == 0
	}

	next := models.FulfillmentRunning
	if complete {
		next = models.FulfillmentComplete
	}
	if order.Fulfillment == next {
		return nil
	}
	return tx.Model(&order).Update("fulfillment", next).Error
}

func (s *FulfillmentService) loadItem(itemID uuid.UUID) (*models.OrderItem, *models.Order, error) {
	var item models.OrderItem
	if err := s.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	var order models.Order
	if err := s.db.First(&order, "id = ?", item.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	return &item, &order, nil
}

func userSlot(itemID uuid.UUID) string {
	return "user-" + itemID.String()[:8]
}

func deliverySlot(itemID uuid.UUID) string {
	return "delivery-" + itemID.String()[:8]
}
