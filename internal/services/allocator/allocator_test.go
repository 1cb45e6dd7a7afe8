package allocator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) AllocateProfile(ctx context.Context, orderID int) (*models.Delivery, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delivery), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func sampleDelivery() *models.Delivery {
	return &models.Delivery{
		Order: models.Order{
			ID:      7,
			BuyerID: 42,
			TrxID:   "9G45H6J7K8",
			Amount:  50,
			Status:  models.OrderStatusApproved,
		},
		Profile: models.Profile{
			ID:       3,
			Email:    "a@x.com",
			Password: "p1",
			PIN:      "1111",
			Status:   models.ProfileStatusSold,
		},
	}
}

func TestAllocate_Success(t *testing.T) {
	repo := new(RepoMock)
	repo.On("AllocateProfile", mock.Anything, 7).Return(sampleDelivery(), nil)
	pub := new(PublisherMock)
	pub.On("Publish", models.RoutingKeySaleCompleted, mock.MatchedBy(func(e models.SaleCompletedEvent) bool {
		return e.OrderID == 7 && e.ProfileID == 3 && e.EventID != ""
	})).Return(nil)

	svc := New(repo, pub, newNoopLogger())
	delivery, err := svc.Allocate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, delivery.Profile.ID)
	pub.AssertExpectations(t)
}

func TestAllocate_Idempotent(t *testing.T) {
	repo := new(RepoMock)
	repo.On("AllocateProfile", mock.Anything, 7).Return(sampleDelivery(), models.ErrAlreadyProcessed)
	pub := new(PublisherMock)

	svc := New(repo, pub, newNoopLogger())
	delivery, err := svc.Allocate(context.Background(), 7)
	require.ErrorIs(t, err, models.ErrAlreadyProcessed)
	require.NotNil(t, delivery, "повторный вызов возвращает ранее привязанный профиль")
	assert.Equal(t, 3, delivery.Profile.ID)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAllocate_OutOfStock(t *testing.T) {
	repo := new(RepoMock)
	repo.On("AllocateProfile", mock.Anything, 7).Return(nil, models.ErrOutOfStock)
	pub := new(PublisherMock)

	svc := New(repo, pub, newNoopLogger())
	delivery, err := svc.Allocate(context.Background(), 7)
	require.ErrorIs(t, err, models.ErrOutOfStock)
	assert.Nil(t, delivery)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAllocate_PublishFailureDoesNotFailSale(t *testing.T) {
	repo := new(RepoMock)
	repo.On("AllocateProfile", mock.Anything, 7).Return(sampleDelivery(), nil)
	pub := new(PublisherMock)
	pub.On("Publish", models.RoutingKeySaleCompleted, mock.Anything).Return(errors.New("broker down"))

	svc := New(repo, pub, newNoopLogger())
	delivery, err := svc.Allocate(context.Background(), 7)
	require.NoError(t, err, "продажа уже зафиксирована в базе")
	assert.Equal(t, 7, delivery.Order.ID)
}
