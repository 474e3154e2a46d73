package archive

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchiver struct {
	archived int64
	err      error
	cutoffs  []time.Time
}

func (f *fakeArchiver) ArchiveResolvedPolls(_ context.Context, resolvedBefore time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, resolvedBefore)
	return f.archived, f.err
}

func TestRunUsesRetentionCutoff(t *testing.T) {
	fake := &fakeArchiver{archived: 12}
	r := NewRunner(fake, 90, slog.New(slog.DiscardHandler))

	err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, fake.cutoffs, 1)

	want := time.Now().UTC().Add(-90 * 24 * time.Hour)
	assert.WithinDuration(t, want, fake.cutoffs[0], time.Minute)
}

func TestRunPropagatesArchiveError(t *testing.T) {
	fake := &fakeArchiver{err: errors.New("bucket gone")}
	r := NewRunner(fake, 30, slog.New(slog.DiscardHandler))

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestRunCronRejectsBadExpression(t *testing.T) {
	r := NewRunner(&fakeArchiver{}, 30, slog.New(slog.DiscardHandler))

	err := r.RunCron(context.Background(), "not a cron")
	require.Error(t, err)
}

func TestParseCron(t *testing.T) {
	c, err := parseCron("0 3 1 * *")
	require.NoError(t, err)

	assert.True(t, c.matchesTime(time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)))
	assert.False(t, c.matchesTime(time.Date(2026, 2, 1, 4, 0, 0, 0, time.UTC)))
	assert.False(t, c.matchesTime(time.Date(2026, 2, 2, 3, 0, 0, 0, time.UTC)))

	_, err = parseCron("0 3 1 *")
	require.Error(t, err)

	_, err = parseCron("x 3 1 * *")
	require.Error(t, err)
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 1, 15, 2, 30, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC), next)

	next, err = nextCronTime("0 3 1 * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC), next)
}

func TestCronFieldLists(t *testing.T) {
	f, err := parseCronField("1,15")
	require.NoError(t, err)
	assert.True(t, f.matches(1))
	assert.True(t, f.matches(15))
	assert.False(t, f.matches(2))
}
