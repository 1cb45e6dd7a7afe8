package review

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *RepoMock) RejectOrder(ctx context.Context, id int, reason string) (int, error) {
	args := m.Called(ctx, id, reason)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) SetAppeal(ctx context.Context, id int, buyerID int64, text string, at time.Time) (int, error) {
	args := m.Called(ctx, id, buyerID, text, at)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ExistsApprovedTrxID(ctx context.Context, trxID string, excludeOrderID int) (bool, error) {
	args := m.Called(ctx, trxID, excludeOrderID)
	return args.Bool(0), args.Error(1)
}

type AllocatorMock struct{ mock.Mock }

func (m *AllocatorMock) Allocate(ctx context.Context, orderID int) (*models.Delivery, error) {
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

type adminSet map[int64]bool

func (a adminSet) IsAdmin(userID int64) bool { return a[userID] }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:      7,
		BuyerID: 42,
		TrxID:   "9G45H6J7K8",
		Amount:  50,
		Status:  models.OrderStatusPending,
	}
}

func TestApprove_Unauthorized(t *testing.T) {
	svc := New(new(RepoMock), new(AllocatorMock), adminSet{}, new(PublisherMock), newNoopLogger())

	_, err := svc.Approve(context.Background(), 7, 999)
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestApprove_Success(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(pendingOrder(), nil)
	repo.On("ExistsApprovedTrxID", mock.Anything, "9G45H6J7K8", 7).Return(false, nil)
	alloc := new(AllocatorMock)
	delivery := &models.Delivery{
		Order:   models.Order{ID: 7, Status: models.OrderStatusApproved},
		Profile: models.Profile{ID: 3},
	}
	alloc.On("Allocate", mock.Anything, 7).Return(delivery, nil)

	svc := New(repo, alloc, adminSet{1: true}, new(PublisherMock), newNoopLogger())
	got, err := svc.Approve(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Profile.ID)
	repo.AssertExpectations(t)
}

func TestApprove_DuplicateTrxIDAutoRejects(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(pendingOrder(), nil)
	repo.On("ExistsApprovedTrxID", mock.Anything, "9G45H6J7K8", 7).Return(true, nil)
	repo.On("RejectOrder", mock.Anything, 7, models.RejectReasonDuplicate).Return(1, nil)
	alloc := new(AllocatorMock)

	svc := New(repo, alloc, adminSet{1: true}, new(PublisherMock), newNoopLogger())
	_, err := svc.Approve(context.Background(), 7, 1)
	require.ErrorIs(t, err, models.ErrDuplicateSubmission)
	alloc.AssertNotCalled(t, "Allocate", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestApprove_OutOfStockAlertsAdmins(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(pendingOrder(), nil)
	repo.On("ExistsApprovedTrxID", mock.Anything, "9G45H6J7K8", 7).Return(false, nil)
	alloc := new(AllocatorMock)
	alloc.On("Allocate", mock.Anything, 7).Return(nil, models.ErrOutOfStock)
	pub := new(PublisherMock)
	pub.On("Publish", models.RoutingKeyRestockNeeded, mock.MatchedBy(func(e models.RestockNeededEvent) bool {
		return e.OrderID == 7 && e.AdminID == 1
	})).Return(nil)

	svc := New(repo, alloc, adminSet{1: true}, pub, newNoopLogger())
	_, err := svc.Approve(context.Background(), 7, 1)
	require.ErrorIs(t, err, models.ErrOutOfStock)
	pub.AssertExpectations(t)
}

func TestApprove_SecondAdminSeesAlreadyProcessed(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(pendingOrder(), nil)
	repo.On("ExistsApprovedTrxID", mock.Anything, "9G45H6J7K8", 7).Return(false, nil)
	alloc := new(AllocatorMock)
	delivery := &models.Delivery{
		Order:   models.Order{ID: 7, Status: models.OrderStatusApproved},
		Profile: models.Profile{ID: 3},
	}
	alloc.On("Allocate", mock.Anything, 7).Return(delivery, models.ErrAlreadyProcessed)

	svc := New(repo, alloc, adminSet{1: true, 2: true}, new(PublisherMock), newNoopLogger())
	got, err := svc.Approve(context.Background(), 7, 2)
	require.ErrorIs(t, err, models.ErrAlreadyProcessed)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Profile.ID)
}

func TestAutoApprove_SkipsAdminCheck(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(pendingOrder(), nil)
	repo.On("ExistsApprovedTrxID", mock.Anything, "9G45H6J7K8", 7).Return(false, nil)
	alloc := new(AllocatorMock)
	delivery := &models.Delivery{
		Order:   models.Order{ID: 7, Status: models.OrderStatusApproved},
		Profile: models.Profile{ID: 3},
	}
	alloc.On("Allocate", mock.Anything, 7).Return(delivery, nil)

	svc := New(repo, alloc, adminSet{}, new(PublisherMock), newNoopLogger())
	got, err := svc.AutoApprove(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Profile.ID)
	repo.AssertExpectations(t)
}

func TestAutoApprove_DuplicateStillRejected(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(pendingOrder(), nil)
	repo.On("ExistsApprovedTrxID", mock.Anything, "9G45H6J7K8", 7).Return(true, nil)
	repo.On("RejectOrder", mock.Anything, 7, models.RejectReasonDuplicate).Return(1, nil)
	alloc := new(AllocatorMock)

	svc := New(repo, alloc, adminSet{}, new(PublisherMock), newNoopLogger())
	_, err := svc.AutoApprove(context.Background(), 7)
	require.ErrorIs(t, err, models.ErrDuplicateSubmission)
	alloc.AssertNotCalled(t, "Allocate", mock.Anything, mock.Anything)
}

func TestReject_CannotTouchApproved(t *testing.T) {
	repo := new(RepoMock)
	repo.On("RejectOrder", mock.Anything, 7, models.RejectReasonWrongAmount).Return(0, nil)

	svc := New(repo, new(AllocatorMock), adminSet{1: true}, new(PublisherMock), newNoopLogger())
	err := svc.Reject(context.Background(), 7, 1, models.RejectReasonWrongAmount)
	require.ErrorIs(t, err, models.ErrAlreadyProcessed)
}

func TestReject_EmptyReasonFallsBack(t *testing.T) {
	repo := new(RepoMock)
	repo.On("RejectOrder", mock.Anything, 7, models.RejectReasonUnclear).Return(1, nil)

	svc := New(repo, new(AllocatorMock), adminSet{1: true}, new(PublisherMock), newNoopLogger())
	require.NoError(t, svc.Reject(context.Background(), 7, 1, ""))
	repo.AssertExpectations(t)
}

func TestAppeal_Flow(t *testing.T) {
	reason := models.RejectReasonWrongAmount
	rejected := pendingOrder()
	rejected.Status = models.OrderStatusRejected
	rejected.RejectReason = &reason

	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(rejected, nil)
	repo.On("SetAppeal", mock.Anything, 7, int64(42), "я заплатил полную сумму", mock.Anything).Return(1, nil)
	pub := new(PublisherMock)
	pub.On("Publish", models.RoutingKeyOrderAppealed, mock.MatchedBy(func(e models.OrderAppealedEvent) bool {
		return e.OrderID == 7 && e.BuyerID == 42
	})).Return(nil)

	svc := New(repo, new(AllocatorMock), adminSet{}, pub, newNoopLogger())
	err := svc.Appeal(context.Background(), 7, 42, "я заплатил полную сумму")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestAppeal_OnlyBuyer(t *testing.T) {
	rejected := pendingOrder()
	rejected.Status = models.OrderStatusRejected
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(rejected, nil)

	svc := New(repo, new(AllocatorMock), adminSet{}, new(PublisherMock), newNoopLogger())
	err := svc.Appeal(context.Background(), 7, 9999, "не мой заказ")
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAppeal_OnlyRejectedOrders(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(pendingOrder(), nil)

	svc := New(repo, new(AllocatorMock), adminSet{}, new(PublisherMock), newNoopLogger())
	err := svc.Appeal(context.Background(), 7, 42, "текст")
	require.ErrorIs(t, err, models.ErrOrderNotRejected)
}

func TestAppeal_AtMostOnce(t *testing.T) {
	appeal := "уже подавал"
	rejected := pendingOrder()
	rejected.Status = models.OrderStatusRejected
	rejected.AppealText = &appeal

	repo := new(RepoMock)
	repo.On("GetOrder", mock.Anything, 7).Return(rejected, nil)

	svc := New(repo, new(AllocatorMock), adminSet{}, new(PublisherMock), newNoopLogger())
	err := svc.Appeal(context.Background(), 7, 42, "второй раз")
	require.ErrorIs(t, err, models.ErrAlreadyAppealed)
	repo.AssertNotCalled(t, "SetAppeal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
