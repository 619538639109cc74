// Package progress carries pipeline events from the scan, reconcile and
// organize stages to observers such as the console logger or a UI.
//
// Producers call Sink.Emit and never block on observers. A Stream keeps
// every event in order and fans them out to subscribers over buffered
// channels. A subscriber that falls behind misses live events but can
// always read the full log with Events.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// Level is the severity of an event.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Stage names used by the pipeline.
const (
	StageScan      = "scan"
	StageReconcile = "reconcile"
	StageOrganize  = "organize"
	StageRestore   = "restore"
)

// Event is one progress notification. Current and Total are zero when the
// event does not advance a counter.
type Event struct {
	Time    time.Time
	Stage   string
	Level   Level
	Message string
	Current int
	Total   int
}

// Sink receives events. Implementations must be safe for use from any
// goroutine and must not block.
type Sink interface {
	Emit(Event)
}

// Func adapts a function to Sink.
type Func func(Event)

// Emit calls f.
func (f Func) Emit(e Event) { f(e) }

// Emitf sends a formatted event to s. A nil sink is ignored.
func Emitf(s Sink, stage string, level Level, format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.Emit(Event{Time: time.Now(), Stage: stage, Level: level, Message: fmt.Sprintf(format, args...)})
}

// Step sends a counter event to s. A nil sink is ignored.
func Step(s Sink, stage string, current, total int, message string) {
	if s == nil {
		return
	}
	s.Emit(Event{Time: time.Now(), Stage: stage, Level: LevelInfo, Message: message, Current: current, Total: total})
}

// Multi fans events out to several sinks.
type Multi []Sink

// Emit forwards e to every non-nil sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Stream is an append-only event log with non-blocking subscribers.
type Stream struct {
	mu      sync.Mutex
	events  []Event
	subs    map[int]chan Event
	nextID  int
	dropped int
	closed  bool
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Emit appends e and offers it to every subscriber without waiting.
func (s *Stream) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events = append(s.events, e)
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			s.dropped++
		}
	}
}

// Subscribe returns a channel of live events and a cancel function. The
// channel is closed by cancel or Close.
func (s *Stream) Subscribe(buffer int) (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Events returns a copy of every event emitted so far.
func (s *Stream) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Dropped returns how many live deliveries were skipped because a
// subscriber's buffer was full.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops delivery and closes every subscriber channel.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
