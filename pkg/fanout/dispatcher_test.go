package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/reelview/pkg/bus"
	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
)

type fakeHistory struct {
	mu        sync.Mutex
	frames    []movie.Frame
	subtitles []movie.Subtitle
	audio     []movie.AudioSpan
	memories  []movie.Memory
	err       error
}

func (h *fakeHistory) AppendFrame(id string, frame movie.Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.frames = append(h.frames, frame)
	return nil
}

func (h *fakeHistory) AppendSubtitles(id string, subs []movie.Subtitle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.subtitles = append(h.subtitles, subs...)
	return nil
}

func (h *fakeHistory) AppendAudio(id string, span movie.AudioSpan) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.audio = append(h.audio, span)
	return nil
}

func (h *fakeHistory) AppendMemory(id string, mem movie.Memory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.memories = append(h.memories, mem)
	return nil
}

func collect(t *testing.T, b bus.EventBus, subject string) (<-chan Event, func()) {
	t.Helper()
	ch := make(chan Event, 16)
	sub, err := b.Subscribe(context.Background(), subject, func(msg *bus.Message) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err == nil {
			ch <- ev
		}
	})
	require.NoError(t, err)
	return ch, func() { _ = sub.Unsubscribe() }
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestDispatcher_FrameRecordsThenPublishes(t *testing.T) {
	history := &fakeHistory{}
	memBus := bus.NewMemoryBus()
	defer memBus.Close()
	d := NewDispatcher(history, memBus, logging.NewLoggerTo(&bytes.Buffer{}))

	ch, stop := collect(t, memBus, SubjectFrame("s1"))
	defer stop()

	frame := movie.Frame{ID: "frame_1", SessionID: "s1", Width: 640, Height: 360}
	require.NoError(t, d.Frame(context.Background(), "s1", frame))

	ev := recv(t, ch)
	assert.Equal(t, EventFrameCaptured, ev.Type)
	assert.Equal(t, "s1", ev.SessionID)
	require.NotNil(t, ev.Frame)
	assert.Equal(t, "frame_1", ev.Frame.ID)

	assert.Len(t, history.frames, 1)
}

func TestDispatcher_AppendFailureSuppressesPublish(t *testing.T) {
	history := &fakeHistory{err: movie.ErrSessionNotFound}
	memBus := bus.NewMemoryBus()
	defer memBus.Close()
	d := NewDispatcher(history, memBus, logging.NewLoggerTo(&bytes.Buffer{}))

	ch, stop := collect(t, memBus, SubjectSession("s1"))
	defer stop()

	err := d.Frame(context.Background(), "s1", movie.Frame{ID: "frame_1"})
	assert.True(t, errors.Is(err, movie.ErrSessionNotFound))

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q after failed append", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_SubtitleBatchIsOneEvent(t *testing.T) {
	history := &fakeHistory{}
	memBus := bus.NewMemoryBus()
	defer memBus.Close()
	d := NewDispatcher(history, memBus, logging.NewLoggerTo(&bytes.Buffer{}))

	ch, stop := collect(t, memBus, SubjectSubtitle("s1"))
	defer stop()

	subs := []movie.Subtitle{{ID: "subtitle_1", Text: "a"}, {ID: "subtitle_2", Text: "b"}}
	require.NoError(t, d.Subtitles(context.Background(), "s1", subs))

	ev := recv(t, ch)
	assert.Equal(t, EventSubtitleCaptured, ev.Type)
	assert.Len(t, ev.Subtitles, 2)
	assert.Len(t, history.subtitles, 2)
}

func TestDispatcher_EmptySubtitleBatchIsDropped(t *testing.T) {
	history := &fakeHistory{}
	memBus := bus.NewMemoryBus()
	defer memBus.Close()
	d := NewDispatcher(history, memBus, logging.NewLoggerTo(&bytes.Buffer{}))

	ch, stop := collect(t, memBus, SubjectSession("s1"))
	defer stop()

	require.NoError(t, d.Subtitles(context.Background(), "s1", nil))

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q for empty batch", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, history.subtitles)
}

func TestDispatcher_MemoryEvent(t *testing.T) {
	history := &fakeHistory{}
	memBus := bus.NewMemoryBus()
	defer memBus.Close()
	d := NewDispatcher(history, memBus, logging.NewLoggerTo(&bytes.Buffer{}))

	ch, stop := collect(t, memBus, SubjectMemory("s1"))
	defer stop()

	mem := movie.Memory{ID: "memory_1", SessionID: "s1", Kind: movie.MemoryScene, Confidence: 0.8}
	require.NoError(t, d.Memory(context.Background(), "s1", mem))

	ev := recv(t, ch)
	assert.Equal(t, EventMemoryCreated, ev.Type)
	require.NotNil(t, ev.Memory)
	assert.Equal(t, movie.MemoryScene, ev.Memory.Kind)
}

func TestDispatcher_SessionWildcardSeesAllKinds(t *testing.T) {
	history := &fakeHistory{}
	memBus := bus.NewMemoryBus()
	defer memBus.Close()
	d := NewDispatcher(history, memBus, logging.NewLoggerTo(&bytes.Buffer{}))

	ch, stop := collect(t, memBus, SubjectSession("s1"))
	defer stop()

	other, stopOther := collect(t, memBus, SubjectSession("s2"))
	defer stopOther()

	ctx := context.Background()
	require.NoError(t, d.Frame(ctx, "s1", movie.Frame{ID: "frame_1"}))
	require.NoError(t, d.Subtitles(ctx, "s1", []movie.Subtitle{{ID: "subtitle_1", Text: "x"}}))
	require.NoError(t, d.Memory(ctx, "s1", movie.Memory{ID: "memory_1"}))

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[recv(t, ch).Type] = true
	}
	assert.True(t, seen[EventFrameCaptured])
	assert.True(t, seen[EventSubtitleCaptured])
	assert.True(t, seen[EventMemoryCreated])

	select {
	case ev := <-other:
		t.Fatalf("session s2 subscriber saw %q", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
