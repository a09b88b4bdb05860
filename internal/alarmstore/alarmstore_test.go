package alarmstore

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	require.True(t, s.Create("id-1", time.Hour, "a"))
	require.False(t, s.Create("id-1", time.Hour, "b"))
}

func TestWithMutatesLiveState(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	require.True(t, s.Create("id-1", time.Hour, 1))

	ok := s.With("id-1", func(state interface{}) (interface{}, bool) {
		return state.(int) + 1, true
	})
	assert.True(t, ok)

	var got int
	s.With("id-1", func(state interface{}) (interface{}, bool) {
		got = state.(int)
		return state, true
	})
	assert.Equal(t, 2, got)
}

func TestWithMissingObjectFails(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	ok := s.With("nope", func(state interface{}) (interface{}, bool) { return state, true })
	assert.False(t, ok)
}

func TestDestroyErasesState(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	require.True(t, s.Create("id-1", time.Hour, "a"))
	s.Destroy("id-1")

	ok := s.With("id-1", func(state interface{}) (interface{}, bool) { return state, true })
	assert.False(t, ok)
}

func TestAlarmFiresAndErasesState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	require.True(t, s.Create("id-1", time.Minute, "a"))

	clock.BlockUntil(1)
	clock.Advance(2 * time.Minute)

	require.Eventually(t, func() bool {
		return !s.With("id-1", func(state interface{}) (interface{}, bool) { return state, true })
	}, time.Second, time.Millisecond)
}

func TestExtendPostponesAlarm(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	require.True(t, s.Create("id-1", time.Minute, "a"))
	clock.BlockUntil(1)

	require.True(t, s.Extend("id-1", time.Hour))
	clock.BlockUntil(1)

	clock.Advance(2 * time.Minute)
	// The original 1-minute alarm was cancelled; the object must still
	// be live after the time it would originally have expired.
	time.Sleep(10 * time.Millisecond)
	ok := s.With("id-1", func(state interface{}) (interface{}, bool) { return state, true })
	assert.True(t, ok)
}
