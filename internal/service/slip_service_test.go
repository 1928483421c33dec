package service_test

import (
	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
)

func (suite *serviceSuite) TestUploadSlip_ReplacesPreviousSlip() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))
	suite.Require().NotNil(order.Slip)
	oldSlip := *order.Slip

	upload := newSlipUpload()

	slip, err := suite.slips.ReplaceSlip(ctx, order.ID, upload)
	suite.Require().NoError(err)

	suite.NotEqual(oldSlip.ID, slip.ID)
	suite.Equal(order.ID, slip.OrderID)
	suite.False(slip.Verified)
	suite.Nil(slip.VerifiedAt)
	suite.Equal(domain.PaymentStatusPending, slip.PaymentStatus)
	suite.Equal(int64(len(upload.Data)), slip.Size)
	suite.Equal("image/png", slip.ContentType)

	suite.False(suite.blobExists(oldSlip.FilePath))
	suite.True(suite.blobExists(slip.FilePath))
	suite.Equal(1, suite.countBlobs())
	suite.Equal(1, suite.countRows("slips"))

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusProcessing, fetched.Status)
	suite.Require().NotNil(fetched.Slip)
	suite.Equal(slip.ID, fetched.Slip.ID)

	suite.InDelta(1, testutil.ToFloat64(suite.metrics.SlipUploads.WithLabelValues("replace")), 0)
}

func (suite *serviceSuite) TestUploadSlip_KeepsDeclaredContentType() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))
	suite.Require().NotNil(order.Slip)
	suite.Equal("image/png", suite.blobs.contentTypeOf(order.Slip.FilePath))

	upload := newSlipUpload()
	upload.ContentType = "application/pdf"

	slip, err := suite.slips.UploadSlip(ctx, order.ID, upload)
	suite.Require().NoError(err)

	suite.Equal("application/pdf", slip.ContentType)
	suite.Equal(slip.ContentType, suite.blobs.contentTypeOf(slip.FilePath))
}

func (suite *serviceSuite) TestUploadSlip_ResetsVerification() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	_, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{
		Order:   lo.ToPtr(domain.OrderStatusShipped),
		Payment: lo.ToPtr(domain.PaymentStatusVerified),
	})
	suite.Require().NoError(err)

	slip, err := suite.slips.UploadSlip(ctx, order.ID, newSlipUpload())
	suite.Require().NoError(err)
	suite.False(slip.Verified)

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusShipped, fetched.Status)
	suite.Equal(domain.PaymentStatusVerified, fetched.PaymentStatus)
}

func (suite *serviceSuite) TestUploadSlip_OrderNotFound() {
	_, err := suite.slips.UploadSlip(suite.T().Context(), uuid.New(), newSlipUpload())
	suite.Require().ErrorIs(err, domain.ErrOrderNotFound)
	suite.Equal(0, suite.countBlobs())
}

func (suite *serviceSuite) TestUploadSlip_EmptyUpload() {
	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	_, err := suite.slips.UploadSlip(suite.T().Context(), order.ID, domain.SlipUpload{FileName: "slip.png"})
	suite.Require().ErrorIs(err, domain.ErrSlipRequired)
	suite.Equal(1, suite.countBlobs())
}

func (suite *serviceSuite) TestUploadSlip_OldBlobDeleteFailureIsLogged() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))
	suite.Require().NotNil(order.Slip)

	suite.blobs.failDelete = true

	slip, err := suite.slips.ReplaceSlip(ctx, order.ID, newSlipUpload())
	suite.Require().NoError(err)
	suite.NotEqual(order.Slip.ID, slip.ID)

	entries := suite.logs.FilterMessage("blob delete failed").All()
	suite.Require().Len(entries, 1)
	suite.Equal(order.Slip.FilePath, entries[0].ContextMap()["path"])
	suite.Equal("slip replaced", entries[0].ContextMap()["reason"])

	// the orphaned blob stays behind
	suite.Equal(2, suite.countBlobs())
}

func (suite *serviceSuite) TestDeleteSlip() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))
	suite.Require().NotNil(order.Slip)

	_, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusProcessing)})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.slips.DeleteSlip(ctx, order.ID))

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPending, fetched.Status)
	suite.Nil(fetched.Slip)
	suite.False(suite.blobExists(order.Slip.FilePath))
	suite.Equal(0, suite.countRows("slips"))

	err = suite.slips.DeleteSlip(ctx, order.ID)
	suite.Require().ErrorIs(err, domain.ErrSlipNotFound)

	_, err = suite.slips.GetSlip(ctx, order.ID)
	suite.Require().ErrorIs(err, domain.ErrSlipNotFound)
}

func (suite *serviceSuite) TestDeleteSlip_ShippedKeepsStatus() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	_, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusShipped)})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.slips.DeleteSlip(ctx, order.ID))

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusShipped, fetched.Status)
	suite.Nil(fetched.Slip)
}

func (suite *serviceSuite) TestGetSlipAndLoad() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	upload := newSlipUpload()

	req := newOrderRequest(line(product, 1))
	req.Slip = &upload

	order, err := suite.orders.CreateOrder(ctx, req)
	suite.Require().NoError(err)

	slip, err := suite.slips.GetSlip(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(upload.FileName, slip.FileName)
	suite.Len(slip.Checksum, 64)

	loaded, data, err := suite.slips.LoadSlip(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(slip.ID, loaded.ID)
	suite.Equal(upload.Data, data)

	_, err = suite.slips.GetSlip(ctx, uuid.New())
	suite.Require().ErrorIs(err, domain.ErrOrderNotFound)
}
