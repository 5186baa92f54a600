package goals

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveron/foliotrack/internal/database"
	"github.com/mveron/foliotrack/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeProgress_Example(t *testing.T) {
	tracker := NewTracker()

	goal := domain.Goal{ID: "g1", TargetAmount: dec("50000")}
	progress, err := tracker.ComputeProgress(goal, dec("45750.80"), time.Now())
	require.NoError(t, err)

	assert.True(t, math.Abs(progress.Percent-91.5) < 0.01, "percent = %f", progress.Percent)
	assert.True(t, progress.Remaining.Equal(dec("4249.20")), "remaining = %s", progress.Remaining)
	assert.False(t, progress.EffectiveCompleted)
	assert.Nil(t, progress.DaysRemaining)
}

func TestComputeProgress_CappedAt100(t *testing.T) {
	tracker := NewTracker()

	goal := domain.Goal{ID: "g1", TargetAmount: dec("10000")}
	progress, err := tracker.ComputeProgress(goal, dec("15000"), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 100.0, progress.Percent)
	assert.True(t, progress.Remaining.IsZero())
	assert.True(t, progress.EffectiveCompleted)
}

func TestComputeProgress_InvalidTarget(t *testing.T) {
	tracker := NewTracker()

	for _, target := range []string{"0", "-100"} {
		goal := domain.Goal{ID: "g1", TargetAmount: dec(target)}
		_, err := tracker.ComputeProgress(goal, dec("1000"), time.Now())
		assert.ErrorIs(t, err, domain.ErrInvalidTarget)
	}
}

func TestComputeProgress_DaysRemaining(t *testing.T) {
	tracker := NewTracker()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	future := now.AddDate(0, 0, 30)
	goal := domain.Goal{ID: "g1", TargetAmount: dec("10000"), TargetDate: &future}

	progress, err := tracker.ComputeProgress(goal, dec("5000"), now)
	require.NoError(t, err)
	require.NotNil(t, progress.DaysRemaining)
	assert.Equal(t, 30, *progress.DaysRemaining)
}

func TestComputeProgress_ExpiredDeadlineNotClamped(t *testing.T) {
	tracker := NewTracker()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	past := now.AddDate(0, 0, -10)
	goal := domain.Goal{ID: "g1", TargetAmount: dec("10000"), TargetDate: &past}

	progress, err := tracker.ComputeProgress(goal, dec("5000"), now)
	require.NoError(t, err)
	require.NotNil(t, progress.DaysRemaining)
	assert.Negative(t, *progress.DaysRemaining, "expired deadlines surface as negative days")
}

func TestComputeProgress_UnionCompletionRule(t *testing.T) {
	tracker := NewTracker()

	// Explicit flag set, progress below 100
	goal := domain.Goal{ID: "g1", TargetAmount: dec("10000"), IsCompleted: true}
	progress, err := tracker.ComputeProgress(goal, dec("5000"), time.Now())
	require.NoError(t, err)
	assert.True(t, progress.EffectiveCompleted)

	// Flag explicitly cleared while value still exceeds target: the
	// union recomputes complete
	goal = domain.Goal{ID: "g2", TargetAmount: dec("10000"), IsCompleted: false}
	progress, err = tracker.ComputeProgress(goal, dec("12000"), time.Now())
	require.NoError(t, err)
	assert.True(t, progress.EffectiveCompleted)
}

func TestRepository_CreateAndProgress(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	defer db.Close()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	targetDate := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create("user-1", CreateGoalInput{
		Title:        "Emergency fund",
		TargetAmount: dec("50000"),
		TargetDate:   &targetDate,
		Description:  "Six months of expenses",
	})
	require.NoError(t, err)

	got, err := repo.Get("user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Emergency fund", got.Title)
	require.NotNil(t, got.TargetDate)
	assert.True(t, got.TargetDate.Equal(targetDate))
	assert.False(t, got.IsCompleted)
}

func TestRepository_RejectsNonPositiveTarget(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	defer db.Close()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	_, err = repo.Create("user-1", CreateGoalInput{Title: "Bad", TargetAmount: dec("0")})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestRepository_ToggleCompleted(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	defer db.Close()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	created, err := repo.Create("user-1", CreateGoalInput{Title: "House", TargetAmount: dec("100000")})
	require.NoError(t, err)

	require.NoError(t, repo.SetCompleted("user-1", created.ID, true))
	goal, err := repo.Get("user-1", created.ID)
	require.NoError(t, err)
	assert.True(t, goal.IsCompleted)

	require.NoError(t, repo.SetCompleted("user-1", created.ID, false))
	goal, err = repo.Get("user-1", created.ID)
	require.NoError(t, err)
	assert.False(t, goal.IsCompleted)
}
