package maintenance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/config"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/store"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) FailStuckProperties(ctx context.Context, before time.Time, message string) (int, error) {
	args := m.Called(ctx, before, message)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ExpireConfirmations(ctx context.Context, before time.Time, message string) (int, error) {
	args := m.Called(ctx, before, message)
	return args.Int(0), args.Error(1)
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.MaintenanceConfig {
	return config.MaintenanceConfig{StuckAfterMinutes: 30, ConfirmationTTLHours: 24}
}

func TestSweep_Cutoffs(t *testing.T) {
	st := &mockStore{}
	st.On("FailStuckProperties", mock.Anything, now.Add(-30*time.Minute), MsgInterrupted).Return(2, nil)
	st.On("ExpireConfirmations", mock.Anything, now.Add(-24*time.Hour), MsgExpired).Return(1, nil)

	s := NewSweeper(st, testConfig())
	s.now = func() time.Time { return now }

	r, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Interrupted: 2, Expired: 1}, r)
	st.AssertExpectations(t)
}

func TestSweep_Errors(t *testing.T) {
	st := &mockStore{}
	st.On("FailStuckProperties", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("db gone"))

	s := NewSweeper(st, testConfig())
	_, err := s.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail stuck properties")
	st.AssertNotCalled(t, "ExpireConfirmations", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_ExpiryDisabled(t *testing.T) {
	st := &mockStore{}
	st.On("FailStuckProperties", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)

	s := NewSweeper(st, config.MaintenanceConfig{StuckAfterMinutes: 30})
	_, err := s.Sweep(context.Background())
	require.NoError(t, err)
	st.AssertNotCalled(t, "ExpireConfirmations", mock.Anything, mock.Anything, mock.Anything)
}

func TestSchedule_InvalidSpec(t *testing.T) {
	s := NewSweeper(&mockStore{}, testConfig())
	_, err := s.Schedule(context.Background(), "every tuesday")
	assert.Error(t, err)
}

func TestSweep_SQLite(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	stuck, err := st.CreateProperty(ctx, &model.Property{Address: "1 Stuck Rd", Status: model.PropertyStatusProcessing})
	require.NoError(t, err)
	waiting, err := st.CreateProperty(ctx, &model.Property{
		Address:           model.PendingAddress,
		Status:            model.PropertyStatusNeedsConfirmation,
		NeedsConfirmation: true,
		ConfirmationToken: "A3F9C2B1",
	})
	require.NoError(t, err)

	// Run the sweep from the future so both rows are past their cutoffs.
	s := NewSweeper(st, testConfig())
	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	r, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Interrupted: 1, Expired: 1}, r)

	got, err := st.GetProperty(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusError, got.Status)
	assert.Equal(t, MsgInterrupted, got.ErrorMessage)

	got, err = st.GetProperty(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusError, got.Status)
	assert.Equal(t, MsgExpired, got.ErrorMessage)
	assert.True(t, got.NeedsConfirmation)
}
