package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLoggerContract exercises behavior every LookupLogger must share.
func testLoggerContract(t *testing.T, newLogger func(t *testing.T) LookupLogger) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, l LookupLogger) {
		t.Helper()
		events := []*LookupEvent{
			{Term: "Bulbasaur", Outcome: OutcomeFound, Source: SourceSearch, DurationMS: 120},
			{Term: "Nonexistentmon", Outcome: OutcomeNotFound, Source: SourceSearch, DurationMS: 80},
			{Term: "Pikachu", Outcome: OutcomeError, Message: "network error", Source: SourceDetail},
			{Term: "pikachu", Outcome: OutcomeFound, Source: SourceAPI, RequestID: "req-1"},
			{Term: "A", Outcome: OutcomeStale, Source: SourceSearch, PageID: "page-1"},
		}
		for i, e := range events {
			e.Timestamp = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, l.Log(t.Context(), e))
			require.NotEmpty(t, e.ID)
		}
	}

	t.Run("newest first with total", func(t *testing.T) {
		l := newLogger(t)
		seed(t, l)

		got, total, err := l.List(t.Context(), ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, got, 5)
		assert.Equal(t, "A", got[0].Term)
		assert.Equal(t, "page-1", got[0].PageID)
		assert.Equal(t, "Bulbasaur", got[4].Term)
		assert.Equal(t, int64(120), got[4].DurationMS)
		assert.True(t, got[4].Timestamp.Equal(base))
	})

	t.Run("filters", func(t *testing.T) {
		l := newLogger(t)
		seed(t, l)

		got, total, err := l.List(t.Context(), ListOptions{Outcome: OutcomeError})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "network error", got[0].Message)

		_, total, err = l.List(t.Context(), ListOptions{Term: "PIKACHU"})
		require.NoError(t, err)
		assert.Equal(t, 2, total, "term filter ignores case")

		since := base.Add(90 * time.Second)
		until := base.Add(3 * time.Minute)
		got, total, err = l.List(t.Context(), ListOptions{Since: &since, Until: &until})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, "pikachu", got[0].Term)
		assert.Equal(t, "req-1", got[0].RequestID)
	})

	t.Run("pagination", func(t *testing.T) {
		l := newLogger(t)
		seed(t, l)

		got, total, err := l.List(t.Context(), ListOptions{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, got, 2)
		assert.Equal(t, "pikachu", got[0].Term)
		assert.Equal(t, "Pikachu", got[1].Term)

		got, _, err = l.List(t.Context(), ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("rejects unknown outcome", func(t *testing.T) {
		l := newLogger(t)
		err := l.Log(t.Context(), &LookupEvent{Term: "x", Outcome: "maybe", Source: SourceAPI})
		assert.ErrorIs(t, err, ErrInvalidOutcome)
		assert.NoError(t, l.Log(t.Context(), nil))
	})
}
