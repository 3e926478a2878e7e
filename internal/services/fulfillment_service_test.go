// internal/services/fulfillment_service_test.go
package services

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

func fulfillmentFixture(t *testing.T) (*gorm.DB, *FulfillmentService, *models.User) {
	t.Helper()

	db := newTestDB(t)
	storage, err := NewStorageService(testConfig(t))
	require.NoError(t, err)
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	return db, NewFulfillmentService(db, storage), user
}

func reloadItem(t *testing.T, db *gorm.DB, itemID uuid.UUID) *models.OrderItem {
	t.Helper()

	var item models.OrderItem
	require.NoError(t, db.First(&item, "id = ?", itemID).Error)
	return &item
}

func TestUploadUserFileWriteOnce(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	item := order.Items[0]
	ctx := context.Background()

	file, header := makeUpload(t, "wishes.txt", "engrave: happy birthday")
	updated, warnings, err := svc.UploadUserFile(ctx, user.ID, item.ID, file, header)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "wishes.txt", updated.UserFile.Name)
	assert.NotNil(t, updated.UserFileUploadedAt)

	// The slot is used up, even with different content.
	file, header = makeUpload(t, "revised.txt", "engrave: something else")
	_, _, err = svc.UploadUserFile(ctx, user.ID, item.ID, file, header)
	assert.ErrorIs(t, err, ErrFileLocked)
}

func TestUploadUserFileLockSurvivesStaffDelete(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	item := order.Items[0]
	ctx := context.Background()

	file, header := makeUpload(t, "wishes.txt", "v1")
	_, _, err := svc.UploadUserFile(ctx, user.ID, item.ID, file, header)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItemFile(ctx, item.ID, FileSlotUser))

	current := reloadItem(t, db, item.ID)
	assert.Empty(t, current.UserFile.Key)
	assert.NotNil(t, current.UserFileUploadedAt)

	file, header = makeUpload(t, "wishes2.txt", "v2")
	_, _, err = svc.UploadUserFile(ctx, user.ID, item.ID, file, header)
	assert.ErrorIs(t, err, ErrFileLocked)
}

func TestUploadUserFileRequiresPaidOrder(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).Update("status", models.OrderStatusPending).Error)

	file, header := makeUpload(t, "wishes.txt", "v1")
	_, _, err := svc.UploadUserFile(context.Background(), user.ID, order.Items[0].ID, file, header)
	assert.ErrorIs(t, err, ErrOrderNotPaid)
}

func TestUploadUserFileMasksForeignItems(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	stranger := createUser(t, db, "stranger", models.UserRoleCustomer)

	file, header := makeUpload(t, "wishes.txt", "v1")
	_, _, err := svc.UploadUserFile(context.Background(), stranger.ID, order.Items[0].ID, file, header)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAttachItemDeliveryFileCompletesOrder(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 2)
	ctx := context.Background()

	file, header := makeUpload(t, "number-1.pdf", "first deliverable")
	_, _, err := svc.AttachItemDeliveryFile(ctx, order.Items[0].ID, file, header)
	require.NoError(t, err)

	// One of two items delivered: still running.
	assert.Equal(t, models.FulfillmentRunning, reloadOrder(t, db, order.ID).Fulfillment)

	file, header = makeUpload(t, "number-2.pdf", "second deliverable")
	_, _, err = svc.AttachItemDeliveryFile(ctx, order.Items[1].ID, file, header)
	require.NoError(t, err)

	assert.Equal(t, models.FulfillmentComplete, reloadOrder(t, db, order.ID).Fulfillment)
}

func TestAttachItemDeliveryFileReplaces(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	item := order.Items[0]
	ctx := context.Background()

	file, header := makeUpload(t, "v1.pdf", "first version")
	first, _, err := svc.AttachItemDeliveryFile(ctx, item.ID, file, header)
	require.NoError(t, err)

	file, header = makeUpload(t, "v2.pdf", "second version")
	second, _, err := svc.AttachItemDeliveryFile(ctx, item.ID, file, header)
	require.NoError(t, err)

	assert.NotEqual(t, first.DeliveryFile.Key, second.DeliveryFile.Key)
	assert.Equal(t, "v2.pdf", reloadItem(t, db, item.ID).DeliveryFile.Name)

	// The replaced object is gone from storage.
	_, err = svc.storage.Open(ctx, first.DeliveryFile.Key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDeleteItemDeliveryFileReopensFulfillment(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	item := order.Items[0]
	ctx := context.Background()

	file, header := makeUpload(t, "delivery.pdf", "content")
	_, _, err := svc.AttachItemDeliveryFile(ctx, item.ID, file, header)
	require.NoError(t, err)
	require.Equal(t, models.FulfillmentComplete, reloadOrder(t, db, order.ID).Fulfillment)

	require.NoError(t, svc.DeleteItemFile(ctx, item.ID, FileSlotDelivery))
	assert.Equal(t, models.FulfillmentRunning, reloadOrder(t, db, order.ID).Fulfillment)

	assert.ErrorIs(t, svc.DeleteItemFile(ctx, item.ID, FileSlotDelivery), ErrNoStoredFile)
}

func TestAttachOrderDeliveryFile(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 3)
	ctx := context.Background()

	// A whole-order deliverable completes regardless of per-item files.
	file, header := makeUpload(t, "bundle.zip", "all numbers")
	updated, _, err := svc.AttachOrderDeliveryFile(ctx, order.ID, file, header)
	require.NoError(t, err)
	assert.Equal(t, "bundle.zip", updated.DeliveryFile.Name)
	assert.Equal(t, models.FulfillmentComplete, updated.Fulfillment)

	require.NoError(t, svc.DeleteOrderDeliveryFile(ctx, order.ID))
	current := reloadOrder(t, db, order.ID)
	assert.Empty(t, current.DeliveryFile.Key)
	assert.Equal(t, models.FulfillmentRunning, current.Fulfillment)

	assert.ErrorIs(t, svc.DeleteOrderDeliveryFile(ctx, order.ID), ErrNoStoredFile)
}

func TestOpenItemFileVisibility(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	item := order.Items[0]
	stranger := createUser(t, db, "stranger", models.UserRoleCustomer)
	ctx := context.Background()

	file, header := makeUpload(t, "delivery.pdf", "the goods")
	_, _, err := svc.AttachItemDeliveryFile(ctx, item.ID, file, header)
	require.NoError(t, err)

	// Owner reads their deliverable on a paid order.
	rc, stored, err := svc.OpenItemFile(ctx, user.ID, false, item.ID, FileSlotDelivery)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "the goods", string(data))
	assert.Equal(t, "delivery.pdf", stored.Name)

	// Other customers get not-found, not forbidden.
	_, _, err = svc.OpenItemFile(ctx, stranger.ID, false, item.ID, FileSlotDelivery)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// Staff can read anything.
	staff := createUser(t, db, "staff", models.UserRoleStaff)
	rc, _, err = svc.OpenItemFile(ctx, staff.ID, true, item.ID, FileSlotDelivery)
	require.NoError(t, err)
	rc.Close()

	// Deliverables hide from the owner while the order is unpaid.
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).Update("status", models.OrderStatusChargedBack).Error)
	_, _, err = svc.OpenItemFile(ctx, user.ID, false, item.ID, FileSlotDelivery)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, _, err = svc.OpenItemFile(ctx, user.ID, false, item.ID, FileSlotUser)
	assert.ErrorIs(t, err, ErrNoStoredFile)
}

func TestOpenOrderDeliveryFile(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)
	ctx := context.Background()

	_, _, err := svc.OpenOrderDeliveryFile(ctx, user.ID, false, order.ID)
	assert.ErrorIs(t, err, ErrNoStoredFile)

	file, header := makeUpload(t, "bundle.zip", "zip bytes")
	_, _, err = svc.AttachOrderDeliveryFile(ctx, order.ID, file, header)
	require.NoError(t, err)

	rc, stored, err := svc.OpenOrderDeliveryFile(ctx, user.ID, false, order.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "zip bytes", string(data))
	assert.Equal(t, "bundle.zip", stored.Name)

	_, _, err = svc.OpenOrderDeliveryFile(ctx, user.ID, false, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSetFulfillment(t *testing.T) {
	db, svc, user := fulfillmentFixture(t)
	order := createPaidOrder(t, db, user.ID, 1)

	updated, err := svc.SetFulfillment(order.ID, models.FulfillmentComplete)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentComplete, updated.Fulfillment)

	_, err = svc.SetFulfillment(order.ID, models.FulfillmentStatus("shipped"))
	assert.Error(t, err)

	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).Update("status", models.OrderStatusPending).Error)
	_, err = svc.SetFulfillment(order.ID, models.FulfillmentRunning)
	assert.ErrorIs(t, err, ErrOrderNotPaid)

	_, err = svc.SetFulfillment(uuid.New(), models.FulfillmentComplete)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
