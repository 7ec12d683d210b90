// Package orchestrator is the single entry point for session operations.
// The HTTP API and the MCP tools both call through here, so both surfaces
// share one behavior: capture via the session's engine, recording and
// fan-out via the dispatcher, analysis via the Nyra bridge.
package orchestrator

import (
	"context"

	"github.com/odvcencio/reelview/pkg/fanout"
	"github.com/odvcencio/reelview/pkg/movie"
	"github.com/odvcencio/reelview/pkg/nyra"
	"github.com/odvcencio/reelview/pkg/session"
)

// Orchestrator coordinates the capture pipeline. All session state lives
// in the registry; the orchestrator itself is stateless.
type Orchestrator struct {
	registry   *session.Registry
	dispatcher *fanout.Dispatcher
	bridge     *nyra.Bridge
}

// New wires an orchestrator.
func New(registry *session.Registry, dispatcher *fanout.Dispatcher, bridge *nyra.Bridge) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		dispatcher: dispatcher,
		bridge:     bridge,
	}
}

// StartSession opens a browser on the content URL and registers a new
// active session.
func (o *Orchestrator) StartSession(ctx context.Context, contentID, title, url string) (movie.Session, error) {
	if url == "" {
		return movie.Session{}, movie.NewError(movie.CodeInvalidInput, "url is required")
	}
	if contentID == "" {
		return movie.Session{}, movie.NewError(movie.CodeInvalidInput, "content id is required")
	}
	return o.registry.Create(ctx, contentID, title, url)
}

// StopSession ends a session and returns its final snapshot with the full
// artifact history.
func (o *Orchestrator) StopSession(ctx context.Context, sessionID string) (movie.Session, error) {
	return o.registry.End(sessionID)
}

// PlaybackState samples the player of an active session.
func (o *Orchestrator) PlaybackState(ctx context.Context, sessionID string) (movie.PlaybackState, error) {
	engine, err := o.registry.Engine(sessionID)
	if err != nil {
		return movie.PlaybackState{}, err
	}
	return engine.ReadPlaybackState(ctx, sessionID), nil
}

// CaptureFrame captures one frame, records it, and fans it out.
func (o *Orchestrator) CaptureFrame(ctx context.Context, sessionID string) (movie.Frame, error) {
	engine, err := o.registry.Engine(sessionID)
	if err != nil {
		return movie.Frame{}, err
	}

	frame, err := engine.CaptureFrame(ctx, sessionID)
	if err != nil {
		return movie.Frame{}, err
	}
	if err := o.dispatcher.Frame(ctx, sessionID, frame); err != nil {
		return movie.Frame{}, err
	}
	return frame, nil
}

// CaptureSubtitles extracts the currently visible subtitles, records them,
// and fans them out. An empty extraction is a valid result.
func (o *Orchestrator) CaptureSubtitles(ctx context.Context, sessionID string) ([]movie.Subtitle, error) {
	engine, err := o.registry.Engine(sessionID)
	if err != nil {
		return nil, err
	}

	subs := engine.ExtractSubtitles(ctx, sessionID)
	if err := o.dispatcher.Subtitles(ctx, sessionID, subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Analyze runs Nyra analysis on a content kind for a session. The
// resulting memory is already recorded and announced when this returns.
func (o *Orchestrator) Analyze(ctx context.Context, sessionID string, kind movie.ContentKind) (movie.Memory, error) {
	switch kind {
	case movie.ContentFrame, movie.ContentSubtitle, movie.ContentAudio:
	default:
		return movie.Memory{}, movie.NewError(movie.CodeInvalidInput, "unknown content kind "+string(kind))
	}
	return o.bridge.Analyze(ctx, sessionID, kind)
}

// StartConversation switches Nyra into conversation mode for a session's
// content, primed with its memories. Returns how many were primed.
func (o *Orchestrator) StartConversation(ctx context.Context, sessionID string) (int, error) {
	return o.bridge.StartConversation(ctx, sessionID)
}

// SessionSnapshot returns a session copy, active or ended.
func (o *Orchestrator) SessionSnapshot(sessionID string) (movie.Session, error) {
	return o.registry.Snapshot(sessionID)
}

// ActiveSessions returns copies of all active sessions.
func (o *Orchestrator) ActiveSessions() []movie.Session {
	return o.registry.Active()
}

// ActiveSessionCount reports the number of active sessions.
func (o *Orchestrator) ActiveSessionCount() int {
	return o.registry.ActiveCount()
}

// Shutdown ends all active sessions.
func (o *Orchestrator) Shutdown() {
	o.registry.Shutdown()
}
