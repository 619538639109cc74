package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamKeepsOrder(t *testing.T) {
	s := NewStream()
	Emitf(s, StageScan, LevelInfo, "scanning %s", "house.max")
	Step(s, StageOrganize, 1, 3, "moved wood.jpg")

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "scanning house.max", events[0].Message)
	assert.Equal(t, StageOrganize, events[1].Stage)
	assert.Equal(t, 1, events[1].Current)
	assert.Equal(t, 3, events[1].Total)
	assert.False(t, events[0].Time.IsZero())
}

func TestSubscriberReceivesLiveEvents(t *testing.T) {
	s := NewStream()
	ch, cancel := s.Subscribe(4)
	defer cancel()

	Emitf(s, StageScan, LevelWarn, "skipped stream")
	e := <-ch
	assert.Equal(t, LevelWarn, e.Level)
	assert.Equal(t, "skipped stream", e.Message)
}

func TestSlowSubscriberNeverBlocks(t *testing.T) {
	s := NewStream()
	_, cancel := s.Subscribe(1)
	defer cancel()

	for i := 0; i < 10; i++ {
		Emitf(s, StageOrganize, LevelInfo, "op %d", i)
	}

	assert.Len(t, s.Events(), 10)
	assert.Equal(t, 9, s.Dropped())
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := NewStream()
	ch, cancel := s.Subscribe(1)

	var wg sync.WaitGroup
	wg.Add(1)
	var got []Event
	go func() {
		defer wg.Done()
		for e := range ch {
			got = append(got, e)
		}
	}()

	Emitf(s, StageScan, LevelInfo, "one")
	s.Close()
	wg.Wait()
	cancel()

	assert.LessOrEqual(t, len(got), 1)
	Emitf(s, StageScan, LevelInfo, "after close")
	assert.Len(t, s.Events(), 1)

	late, _ := s.Subscribe(1)
	_, open := <-late
	assert.False(t, open)
}

func TestNilAndMultiSinks(t *testing.T) {
	Emitf(nil, StageScan, LevelInfo, "ignored")
	Step(nil, StageScan, 1, 1, "ignored")

	var a, b []string
	m := Multi{Func(func(e Event) { a = append(a, e.Message) }), nil, Func(func(e Event) { b = append(b, e.Message) })}
	Emitf(m, StageRestore, LevelInfo, "restored %d files", 2)

	assert.Equal(t, []string{"restored 2 files"}, a)
	assert.Equal(t, a, b)
}
