package admins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListAdmins(ctx context.Context) ([]*models.Admin, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Admin), args.Error(1)
}

func (m *RepoMock) AddAdmin(ctx context.Context, userID, addedBy int64, at time.Time) error {
	return m.Called(ctx, userID, addedBy, at).Error(0)
}

func TestDirectory_OwnerAlwaysAdmin(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListAdmins", mock.Anything).Return([]*models.Admin{}, nil)

	dir, err := New(context.Background(), repo, 1)
	require.NoError(t, err)
	assert.True(t, dir.IsAdmin(1))
	assert.False(t, dir.IsAdmin(2))
}

func TestDirectory_LoadsFromRepo(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListAdmins", mock.Anything).Return([]*models.Admin{
		{UserID: 5, AddedBy: 1},
		{UserID: 6, AddedBy: 1},
	}, nil)

	dir, err := New(context.Background(), repo, 1)
	require.NoError(t, err)
	assert.True(t, dir.IsAdmin(5))
	assert.True(t, dir.IsAdmin(6))
	assert.ElementsMatch(t, []int64{1, 5, 6}, dir.List())
}

func TestDirectory_ReloadPicksUpNewAdmins(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListAdmins", mock.Anything).Return([]*models.Admin{}, nil).Once()
	repo.On("ListAdmins", mock.Anything).Return([]*models.Admin{
		{UserID: 9, AddedBy: 1},
	}, nil)

	dir, err := New(context.Background(), repo, 1)
	require.NoError(t, err)
	require.False(t, dir.IsAdmin(9), "добавлен другим процессом уже после загрузки")

	require.NoError(t, dir.Reload(context.Background()))
	assert.True(t, dir.IsAdmin(9))
	assert.ElementsMatch(t, []int64{1, 9}, dir.List())
}

func TestDirectory_AddPersistsAndUpdates(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListAdmins", mock.Anything).Return([]*models.Admin{}, nil)
	repo.On("AddAdmin", mock.Anything, int64(9), int64(1), mock.Anything).Return(nil)

	dir, err := New(context.Background(), repo, 1)
	require.NoError(t, err)
	require.False(t, dir.IsAdmin(9))

	require.NoError(t, dir.Add(context.Background(), 9, 1))
	assert.True(t, dir.IsAdmin(9))
	repo.AssertExpectations(t)
}
