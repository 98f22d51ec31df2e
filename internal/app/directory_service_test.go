package app_test

import (
	"context"
	"errors"
	"testing"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/cooldown"
	"guardian_bot/internal/domain/directory"
	idb "guardian_bot/internal/infra/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type directoryFixture struct {
	entries  *MockDirectoryRepository
	stats    *MockStats
	members  *MockMemberRepository
	settings *MockSettings
	svc      *app.DirectoryService
}

func newDirectoryFixture() *directoryFixture {
	f := &directoryFixture{
		entries:  new(MockDirectoryRepository),
		stats:    new(MockStats),
		members:  new(MockMemberRepository),
		settings: new(MockSettings),
	}
	f.svc = app.NewDirectoryService(f.entries, f.stats, f.members, f.settings, testLogger())
	return f
}

func TestRecordIntroduction_UpsertsWhetherOrNotPresent(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()
	first := directory.MessageReference("chanA", "msg1")
	second := directory.MessageReference("chanB", "msg2")

	f.entries.On("Lookup", ctx, int64(42)).Return(nil, idb.ErrDirectoryEntryNotFound).Once()
	f.entries.On("Upsert", ctx, int64(42), first).Return(nil).Once()
	f.entries.On("Lookup", ctx, int64(42)).Return(&directory.Entry{UserID: 42, Ref: first}, nil).Once()
	f.entries.On("Upsert", ctx, int64(42), second).Return(nil).Once()

	require.NoError(t, f.svc.RecordIntroduction(ctx, 42, first))
	require.NoError(t, f.svc.RecordIntroduction(ctx, 42, second))
	f.entries.AssertExpectations(t)
}

func TestRecordIntroduction_ClassificationFailureDoesNotBlockUpsert(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()
	ref := directory.LinkReference("https://t.me/c/1/2")

	f.entries.On("Lookup", ctx, int64(7)).Return(nil, idb.ErrStoreUnavailable)
	f.entries.On("Upsert", ctx, int64(7), ref).Return(nil)

	require.NoError(t, f.svc.RecordIntroduction(ctx, 7, ref))
	f.entries.AssertCalled(t, "Upsert", ctx, int64(7), ref)
}

func TestRecordIntroduction_UpsertFailure(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()
	ref := directory.LinkReference("https://t.me/c/1/2")

	f.entries.On("Lookup", ctx, int64(7)).Return(nil, idb.ErrDirectoryEntryNotFound)
	f.entries.On("Upsert", ctx, int64(7), ref).Return(idb.ErrStoreUnavailable)

	err := f.svc.RecordIntroduction(ctx, 7, ref)
	assert.ErrorIs(t, err, idb.ErrStoreUnavailable)
}

func TestLookupIntroduction_NotFoundIsNormal(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()
	f.entries.On("Lookup", ctx, int64(9)).Return(nil, idb.ErrDirectoryEntryNotFound)

	_, err := f.svc.LookupIntroduction(ctx, 9)
	assert.True(t, app.IsNotFound(err))
}

func TestLeaderboard(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()
	top := []cooldown.SubmitterCount{{UserID: 1, Count: 5}}
	f.stats.On("TopSubmitters", ctx, 3).Return(top, nil)
	f.stats.On("TotalSubmissions", ctx).Return(8, nil)

	lb, err := f.svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, top, lb.Top)
	assert.Equal(t, 8, lb.Total)
}

func TestSummary(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()
	f.entries.On("Count", ctx).Return(2, nil)
	f.entries.On("ListRecent", ctx, 5).Return([]*directory.Entry{{UserID: 2}, {UserID: 1}}, nil)

	sum, err := f.svc.Summary(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Entries)
	assert.Len(t, sum.Recent, 2)

	sum, err = f.svc.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, sum.Recent)
	f.entries.AssertNumberOfCalls(t, "ListRecent", 1)
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	rows := []app.BackfillRow{
		{UserID: 1, Ref: directory.LinkReference("https://t.me/c/1/10")},
		{UserID: 2, Ref: directory.MessageReference("-1001", "11")},
	}

	t.Run("imports once and marks completed", func(t *testing.T) {
		f := newDirectoryFixture()
		f.settings.On("IsScanCompleted", ctx).Return(false, nil)
		f.entries.On("Upsert", ctx, mock.Anything, mock.Anything).Return(nil)
		f.settings.On("MarkScanCompleted", ctx).Return(nil)

		n, err := f.svc.Backfill(ctx, rows, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		f.settings.AssertExpectations(t)
	})

	t.Run("refuses a second run", func(t *testing.T) {
		f := newDirectoryFixture()
		f.settings.On("IsScanCompleted", ctx).Return(true, nil)

		_, err := f.svc.Backfill(ctx, rows, false)
		assert.ErrorIs(t, err, app.ErrBackfillAlreadyDone)
		f.entries.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		f := newDirectoryFixture()
		f.settings.On("IsScanCompleted", ctx).Return(true, nil)
		f.entries.On("Upsert", ctx, int64(1), rows[0].Ref).Return(nil)
		f.entries.On("Upsert", ctx, int64(2), rows[1].Ref).Return(errors.New("boom"))

		n, err := f.svc.Backfill(ctx, rows, true)
		assert.Error(t, err)
		assert.Equal(t, 1, n)
		f.settings.AssertNotCalled(t, "MarkScanCompleted", mock.Anything)
	})
}
