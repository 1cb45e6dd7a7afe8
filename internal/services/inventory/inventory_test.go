package inventory

import (
	"context"
	"encoding/json"
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

func (m *RepoMock) CreateProfiles(ctx context.Context, profiles []models.Profile) (int, error) {
	args := m.Called(ctx, profiles)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) CountProfilesByStatus(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) CountSales(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListTopReferrers(ctx context.Context, limit int) ([]*models.ReferralRank, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.ReferralRank), args.Error(1)
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(key string, result any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, result)
}

func (c *fakeCache) Set(key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Invalidate(key string) error {
	delete(c.data, key)
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestAddBulk_SkipsMalformedLines(t *testing.T) {
	repo := new(RepoMock)
	repo.On("CreateProfiles", mock.Anything, mock.MatchedBy(func(ps []models.Profile) bool {
		return len(ps) == 2 && ps[0].Email == "a@x.com" && ps[1].Email == "b@x.com"
	})).Return(2, nil)

	svc := New(repo, newFakeCache(), newNoopLogger())
	added, skipped, err := svc.AddBulk(context.Background(), "a@x.com:p1:1111\nbadline\nb@x.com:p2:2222")
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, skipped)
	repo.AssertExpectations(t)
}

func TestAddBulk_OptionalName(t *testing.T) {
	repo := new(RepoMock)
	repo.On("CreateProfiles", mock.Anything, mock.MatchedBy(func(ps []models.Profile) bool {
		return len(ps) == 2 && ps[0].Name == "Kids" && ps[1].Name == "Default"
	})).Return(2, nil)

	svc := New(repo, newFakeCache(), newNoopLogger())
	added, skipped, err := svc.AddBulk(context.Background(), "a@x.com:p1:1111:Kids\nb@x.com:p2:2222")
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Zero(t, skipped)
}

func TestAddBulk_InvalidEmailSkipped(t *testing.T) {
	svc := New(new(RepoMock), newFakeCache(), newNoopLogger())

	added, skipped, err := svc.AddBulk(context.Background(), "not-an-email:p1:1111\n\n")
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 1, skipped, "пустые строки не считаются ошибками")
}

func TestAddBulk_InvalidatesStatsCache(t *testing.T) {
	repo := new(RepoMock)
	repo.On("CreateProfiles", mock.Anything, mock.Anything).Return(1, nil)
	cache := newFakeCache()
	require.NoError(t, cache.Set(statsCacheKey, &Stats{Unsold: 1}, time.Minute))

	svc := New(repo, cache, newNoopLogger())
	_, _, err := svc.AddBulk(context.Background(), "a@x.com:p1:1111")
	require.NoError(t, err)
	assert.NotContains(t, cache.data, statsCacheKey)
}

func TestStats_CachesResult(t *testing.T) {
	repo := new(RepoMock)
	repo.On("CountProfilesByStatus", mock.Anything, models.ProfileStatusUnsold).Return(4, nil).Once()
	repo.On("CountProfilesByStatus", mock.Anything, models.ProfileStatusSold).Return(6, nil).Once()
	repo.On("CountSales", mock.Anything).Return(6, nil).Once()

	svc := New(repo, newFakeCache(), newNoopLogger())
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Unsold: 4, Sold: 6, TotalSales: 6}, stats)

	again, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, again)
	repo.AssertExpectations(t)
}

func TestLeaderboard(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListTopReferrers", mock.Anything, 5).Return([]*models.ReferralRank{
		{UserID: 100, DisplayName: "Referrer", ReferralCount: 21},
	}, nil).Once()

	svc := New(repo, newFakeCache(), newNoopLogger())
	ranks, err := svc.Leaderboard(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, ranks, 1)
	assert.Equal(t, int64(100), ranks[0].UserID)

	// повторный запрос идёт из кэша
	_, err = svc.Leaderboard(context.Background(), 5)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
