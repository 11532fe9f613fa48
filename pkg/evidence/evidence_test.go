package evidence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(op string, outcome Outcome, at time.Time) *Record {
	return &Record{
		ID:         uuid.New(),
		Time:       at,
		Context:    uuid.New(),
		Op:         op,
		InputFrame: uuid.New(),
		Outcome:    outcome,
	}
}

func testStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	old := record("projection", OutcomeAllowed, now.Add(-48*time.Hour))
	fresh := record("finalize", OutcomeBlocked, now)
	fresh.Detail = `column "zip" row 0 retains obligations`
	require.NoError(t, s.Append(ctx, old))
	require.NoError(t, s.Append(ctx, fresh))

	recs, err := s.List(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "projection", recs[0].Op)
	assert.Equal(t, OutcomeBlocked, recs[1].Outcome)
	assert.Equal(t, fresh.Detail, recs[1].Detail)

	recent, err := s.List(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "finalize", recent[0].Op)

	pruned, err := s.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	recs, err = s.List(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, NewMemoryStorage(0))
}

func TestMemoryStorage_Bound(t *testing.T) {
	s := NewMemoryStorage(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, record("projection", OutcomeAllowed, time.Now())))
	}
	recs, err := s.List(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "evidence.db"))
	require.NoError(t, err)
	defer s.Close()
	testStorage(t, s)
}

func TestPruner(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, record("projection", OutcomeAllowed, time.Now().Add(-10*24*time.Hour))))
	require.NoError(t, s.Append(ctx, record("projection", OutcomeAllowed, time.Now())))

	p, err := NewPruner(s, 7, "0 3 * * *", nil)
	require.NoError(t, err)
	pruned, err := p.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, err = NewPruner(s, 0, "0 3 * * *", nil)
	assert.Error(t, err)
}

func TestPruner_BadSchedule(t *testing.T) {
	p, err := NewPruner(NewMemoryStorage(0), 7, "not a schedule", nil)
	require.NoError(t, err)
	assert.Error(t, p.Start())
}
