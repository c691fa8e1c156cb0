package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/eclipse"
	"github.com/litescript/ls-eclipse/internal/timeline"
)

var (
	palma     = astro.Observer{LatDeg: 39.6953, LonDeg: 3.0176, ElevationM: 120, Name: "Palma"}
	searchAt  = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	peak      = time.Date(2026, 8, 12, 18, 31, 49, 0, time.UTC)
	sampleEcl = eclipse.Timing{
		Start:       peak.Add(-time.Hour),
		Peak:        peak,
		End:         peak.Add(55 * time.Minute),
		Obscuration: 0.93,
		Kind:        eclipse.KindPartial,
	}
)

type countingResolver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingResolver) Resolve(start time.Time, obs astro.Observer) (eclipse.Timing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return eclipse.Timing{}, r.err
	}
	return sampleEcl, nil
}

type flatSampler struct {
	mu    sync.Mutex
	calls int
}

func (s *flatSampler) Sample(t time.Time, _ astro.Observer) (eclipse.CoverageSample, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return eclipse.CoverageSample{Time: t, Coverage: 0.5}, nil
}

func timelineOf(tm eclipse.Timing) timeline.Curve {
	return timeline.Curve{Samples: []eclipse.CoverageSample{
		{Time: tm.Start},
		{Time: tm.Peak, Coverage: tm.Obscuration},
		{Time: tm.End},
	}}
}

func TestNewManager(t *testing.T) {
	m := NewManager(Config{}, nil)
	require.NotNil(t, m)
	assert.Equal(t, 30*time.Minute, m.ttl)
	assert.Equal(t, DefaultConfig().MaxEntries, m.maxEntries)
	assert.Nil(t, m.Snapshot().Timing)
}

func TestKeyFor(t *testing.T) {
	near := palma
	near.LatDeg += 0.00003
	near.Name = "elsewhere"
	assert.Equal(t, KeyFor(palma, searchAt), KeyFor(near, searchAt.Add(200*time.Millisecond)))

	far := palma
	far.LatDeg += 0.0002
	assert.NotEqual(t, KeyFor(palma, searchAt), KeyFor(far, searchAt))
	assert.NotEqual(t, KeyFor(palma, searchAt), KeyFor(palma, searchAt.Add(time.Hour)))
}

func TestManager_TimingMemoized(t *testing.T) {
	clock := clockwork.NewFakeClockAt(searchAt)
	m := NewManager(DefaultConfig(), clock)
	r := &countingResolver{}

	got, err := m.Timing(r, palma, searchAt)
	require.NoError(t, err)
	assert.Equal(t, sampleEcl, got)

	clock.Advance(29 * time.Minute)
	_, err = m.Timing(r, palma, searchAt)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls, "second lookup within TTL should hit the memo")

	clock.Advance(2 * time.Minute)
	_, err = m.Timing(r, palma, searchAt)
	require.NoError(t, err)
	assert.Equal(t, 2, r.calls, "lookup after TTL should resolve again")

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.Hits)
	assert.Equal(t, 2, snap.Misses)

	var types []EventType
	for _, e := range snap.Events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventResolved, EventExpired, EventResolved}, types)
}

func TestManager_TimingErrorNotMemoized(t *testing.T) {
	m := NewManager(DefaultConfig(), clockwork.NewFakeClock())
	cause := errors.New("no eclipse")
	r := &countingResolver{err: cause}

	_, err := m.Timing(r, palma, searchAt)
	require.ErrorIs(t, err, cause)
	_, err = m.Timing(r, palma, searchAt)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, 2, r.calls)

	snap := m.Snapshot()
	assert.ErrorIs(t, snap.LastError, cause)
	assert.Zero(t, snap.Entries)
	require.NotEmpty(t, snap.Events)
	assert.Equal(t, EventResolveFailed, snap.Events[len(snap.Events)-1].Type)

	r.err = nil
	_, err = m.Timing(r, palma, searchAt)
	require.NoError(t, err)
	assert.NoError(t, m.Snapshot().LastError)
}

func TestManager_Eviction(t *testing.T) {
	clock := clockwork.NewFakeClockAt(searchAt)
	m := NewManager(Config{TTL: time.Minute, MaxEntries: 2}, clock)
	r := &countingResolver{}

	for i := 0; i < 2; i++ {
		_, err := m.Timing(r, palma, searchAt.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	clock.Advance(2 * time.Minute)

	_, err := m.Timing(r, palma, searchAt.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Snapshot().Entries, "expired entries should be evicted when full")

	_, err = m.Timing(r, palma, searchAt.Add(6*time.Hour))
	require.NoError(t, err)
	_, err = m.Timing(r, palma, searchAt.Add(7*time.Hour))
	require.NoError(t, err)
	assert.LessOrEqual(t, m.Snapshot().Entries, 2)
}

func TestManager_CurveMemoized(t *testing.T) {
	clock := clockwork.NewFakeClockAt(searchAt)
	m := NewManager(DefaultConfig(), clock)
	s := &flatSampler{}
	ctx := context.Background()

	c, err := m.Curve(ctx, s, palma, searchAt, sampleEcl, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, c.Len())
	assert.Equal(t, sampleEcl.Start, c.Samples[0].Time)
	assert.Equal(t, sampleEcl.End, c.Samples[19].Time)

	_, err = m.Curve(ctx, s, palma, searchAt, sampleEcl, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, s.calls)

	_, err = m.Curve(ctx, s, palma, searchAt, sampleEcl, 10)
	require.NoError(t, err)
	assert.Equal(t, 30, s.calls, "a different sample count is a separate entry")

	clock.Advance(31 * time.Minute)
	_, err = m.Curve(ctx, s, palma, searchAt, sampleEcl, 20)
	require.NoError(t, err)
	assert.Equal(t, 50, s.calls)
}

func TestManager_CurveDefaultSamples(t *testing.T) {
	m := NewManager(DefaultConfig(), clockwork.NewFakeClockAt(searchAt))
	s := &flatSampler{}

	c, err := m.Curve(context.Background(), s, palma, searchAt, sampleEcl, 0)
	require.NoError(t, err)
	assert.Equal(t, timeline.DefaultSamples, c.Len())
	assert.Equal(t, timeline.DefaultSamples, s.calls)
}

func TestManager_Cursor(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)

	free := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, free, m.SetCursor(free), "no selection means no clamping")

	m.Select(palma, sampleEcl, timelineOf(sampleEcl))
	snap := m.Snapshot()
	require.NotNil(t, snap.Timing)
	assert.Equal(t, peak, snap.Cursor)
	assert.Equal(t, palma, snap.Observer)

	assert.Equal(t, peak.Add(time.Minute), m.StepCursor(time.Minute))
	assert.Equal(t, sampleEcl.End, m.StepCursor(3*time.Hour))
	assert.Equal(t, sampleEcl.Start, m.SetCursor(sampleEcl.Start.Add(-time.Hour)))
}

func TestManager_SnapshotIsCopy(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	m.Select(palma, sampleEcl, timelineOf(sampleEcl))

	snap := m.Snapshot()
	snap.Timing.Obscuration = 0
	snap.Curve.Samples[0].Coverage = 42

	again := m.Snapshot()
	assert.Equal(t, 0.93, again.Timing.Obscuration)
	assert.NotEqual(t, 42.0, again.Curve.Samples[0].Coverage)
}

func TestManager_EventRingBuffer(t *testing.T) {
	m := NewManager(Config{MaxEvents: 3}, clockwork.NewFakeClock())
	r := &countingResolver{}

	for i := 0; i < 5; i++ {
		obs := astro.Observer{LatDeg: float64(i), Name: fmt.Sprintf("obs%d", i)}
		_, err := m.Timing(r, obs, searchAt)
		require.NoError(t, err)
	}

	events := m.RecentEvents(10)
	require.Len(t, events, 3)
	assert.Contains(t, events[0].Observer, "obs2")
	assert.Contains(t, events[2].Observer, "obs4")

	last := m.RecentEvents(1)
	require.Len(t, last, 1)
	assert.Contains(t, last[0].Observer, "obs4")
}

func TestManager_Concurrent(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	r := &countingResolver{}
	m.Select(palma, sampleEcl, timelineOf(sampleEcl))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = m.Timing(r, palma, searchAt.Add(time.Duration(j%5)*time.Hour))
				m.StepCursor(time.Duration(i-5) * time.Second)
				_ = m.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.False(t, snap.Cursor.Before(sampleEcl.Start))
	assert.False(t, snap.Cursor.After(sampleEcl.End))
}
