// Package fanout routes captured artifacts: each one is recorded in
// session history, then published on the event bus exactly once. Observers
// (the WebSocket layer, a NATS peer) subscribe to bus subjects; the
// dispatcher never talks to them directly.
package fanout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/odvcencio/reelview/pkg/bus"
	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
)

// Event types carried on bus subjects.
const (
	EventFrameCaptured    = "frame_captured"
	EventSubtitleCaptured = "subtitle_captured"
	EventAudioCaptured    = "audio_captured"
	EventMemoryCreated    = "memory_created"
)

// Subject builders. One subject per session and artifact kind, so
// subscribers can take a single kind or a whole session via wildcard.
func SubjectFrame(sessionID string) string    { return "movie.session." + sessionID + ".frame" }
func SubjectSubtitle(sessionID string) string { return "movie.session." + sessionID + ".subtitle" }
func SubjectAudio(sessionID string) string    { return "movie.session." + sessionID + ".audio" }
func SubjectMemory(sessionID string) string   { return "movie.session." + sessionID + ".memory" }

// SubjectSession matches every event of one session.
func SubjectSession(sessionID string) string { return "movie.session." + sessionID + ".>" }

// Event is the wire envelope published on the bus. Exactly one artifact
// field is set, matching Type.
type Event struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Timestamp time.Time        `json:"timestamp"`
	Frame     *movie.Frame     `json:"frame,omitempty"`
	Subtitles []movie.Subtitle `json:"subtitles,omitempty"`
	Audio     *movie.AudioSpan `json:"audio,omitempty"`
	Memory    *movie.Memory    `json:"memory,omitempty"`
}

// History is the slice of the session registry the dispatcher writes to.
type History interface {
	AppendFrame(id string, frame movie.Frame) error
	AppendSubtitles(id string, subs []movie.Subtitle) error
	AppendAudio(id string, span movie.AudioSpan) error
	AppendMemory(id string, mem movie.Memory) error
}

// Dispatcher records artifacts and fans them out. Recording is
// authoritative: an artifact that cannot be appended is not published.
// Publishing is best-effort; bus delivery never fails an operation.
type Dispatcher struct {
	history History
	bus     bus.EventBus
	logger  *logging.Logger
}

// NewDispatcher wires a dispatcher to the session history and event bus.
func NewDispatcher(history History, eventBus bus.EventBus, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{history: history, bus: eventBus, logger: logger}
}

// Frame records a captured frame and announces it.
func (d *Dispatcher) Frame(ctx context.Context, sessionID string, frame movie.Frame) error {
	if err := d.history.AppendFrame(sessionID, frame); err != nil {
		return err
	}
	d.publish(ctx, SubjectFrame(sessionID), Event{
		Type:      EventFrameCaptured,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Frame:     &frame,
	})
	return nil
}

// Subtitles records a subtitle batch and announces it as one event. An
// empty batch is recorded nowhere and announced to no one.
func (d *Dispatcher) Subtitles(ctx context.Context, sessionID string, subs []movie.Subtitle) error {
	if len(subs) == 0 {
		return nil
	}
	if err := d.history.AppendSubtitles(sessionID, subs); err != nil {
		return err
	}
	d.publish(ctx, SubjectSubtitle(sessionID), Event{
		Type:      EventSubtitleCaptured,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Subtitles: subs,
	})
	return nil
}

// Audio records an audio span and announces it.
func (d *Dispatcher) Audio(ctx context.Context, sessionID string, span movie.AudioSpan) error {
	if err := d.history.AppendAudio(sessionID, span); err != nil {
		return err
	}
	d.publish(ctx, SubjectAudio(sessionID), Event{
		Type:      EventAudioCaptured,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Audio:     &span,
	})
	return nil
}

// Memory records an analysis memory and announces it.
func (d *Dispatcher) Memory(ctx context.Context, sessionID string, mem movie.Memory) error {
	if err := d.history.AppendMemory(sessionID, mem); err != nil {
		return err
	}
	d.publish(ctx, SubjectMemory(sessionID), Event{
		Type:      EventMemoryCreated,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Memory:    &mem,
	})
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, subject string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		d.logger.Error(logging.CategoryFanout, "event_marshal_failed", event.SessionID, err.Error(), nil)
		return
	}
	if err := d.bus.Publish(ctx, subject, data); err != nil {
		d.logger.Warn(logging.CategoryFanout, "event_publish_failed", event.SessionID, err.Error(), map[string]any{
			"subject": subject,
			"type":    event.Type,
		})
	}
}
