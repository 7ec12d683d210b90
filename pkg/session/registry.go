// Package session tracks viewing sessions and the capture engine each one
// owns. Every session gets its own engine, so one session's browser dying
// never takes down another's.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/odvcencio/reelview/pkg/capture"
	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
)

// EngineFactory builds a capture engine for one session's platform.
type EngineFactory func(profile capture.Profile) *capture.Engine

// Config bounds the registry.
type Config struct {
	// MaxSessions caps concurrently active sessions. Values below one
	// fall back to one: each engine is a full browser context, and the
	// default deployment drives a single player at a time.
	MaxSessions int
}

type entry struct {
	session *movie.Session
	engine  *capture.Engine
}

// Registry is the authority over session lifecycle and history. All
// mutation goes through it; readers get copies, never live references.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	// pending reserves capacity for creations still initializing their
	// browser, so concurrent creates cannot overshoot MaxSessions.
	pending int

	factory EngineFactory
	cfg     Config
	logger  *logging.Logger
	metrics *capture.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(factory EngineFactory, cfg Config, logger *logging.Logger, metrics *capture.Metrics) *Registry {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 1
	}
	return &Registry{
		entries: make(map[string]*entry),
		factory: factory,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Create starts a new session: builds an engine for the URL's platform,
// opens its browser, navigates, and only then registers the session. A
// failed create leaves no trace in the registry.
func (r *Registry) Create(ctx context.Context, contentID, title, rawURL string) (movie.Session, error) {
	if err := r.reserve(); err != nil {
		return movie.Session{}, err
	}

	platform := capture.DetectPlatform(rawURL)
	engine := r.factory(capture.ProfileFor(platform))

	if err := engine.Initialize(ctx); err != nil {
		r.release()
		return movie.Session{}, err
	}
	if err := engine.Navigate(ctx, rawURL); err != nil {
		engine.Cleanup()
		r.release()
		return movie.Session{}, err
	}

	sess := &movie.Session{
		ID:        NewID("movie"),
		ContentID: contentID,
		Title:     title,
		URL:       rawURL,
		Platform:  platform,
		StartTime: time.Now(),
		Active:    true,
	}

	r.mu.Lock()
	r.pending--
	r.entries[sess.ID] = &entry{session: sess, engine: engine}
	r.mu.Unlock()

	r.metrics.SessionsCreated.Add(1)
	r.logger.Info(logging.CategorySession, "session_created", sess.ID, "session active", map[string]any{
		"content_id": contentID,
		"platform":   string(platform),
		"url":        rawURL,
	})
	return sess.Clone(), nil
}

func (r *Registry) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.pending
	for _, e := range r.entries {
		if e.session.Active {
			active++
		}
	}
	if active >= r.cfg.MaxSessions {
		return movie.ErrTooManySessions
	}
	r.pending++
	return nil
}

func (r *Registry) release() {
	r.mu.Lock()
	r.pending--
	r.mu.Unlock()
}

// End closes a session: marks it ended, releases its engine, and returns
// the final snapshot. Ending a session twice fails with SESSION_NOT_FOUND;
// the engine is released exactly once.
func (r *Registry) End(id string) (movie.Session, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || !e.session.Active {
		r.mu.Unlock()
		return movie.Session{}, movie.ErrSessionNotFound
	}
	now := time.Now()
	e.session.Active = false
	e.session.EndTime = &now
	engine := e.engine
	e.engine = nil
	snapshot := e.session.Clone()
	r.mu.Unlock()

	engine.Cleanup()
	r.metrics.SessionsClosed.Add(1)
	r.logger.Info(logging.CategorySession, "session_ended", id, "session ended", map[string]any{
		"frames":    len(snapshot.Data.Frames),
		"subtitles": len(snapshot.Data.Subtitles),
		"memories":  len(snapshot.Data.Memories),
	})
	return snapshot, nil
}

// Engine returns the live engine of an active session.
func (r *Registry) Engine(id string) (*capture.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || !e.session.Active {
		return nil, movie.ErrSessionNotFound
	}
	return e.engine, nil
}

// Snapshot returns a copy of a session, active or ended.
func (r *Registry) Snapshot(id string) (movie.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return movie.Session{}, movie.ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

// Active returns copies of all currently active sessions.
func (r *Registry) Active() []movie.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []movie.Session
	for _, e := range r.entries {
		if e.session.Active {
			out = append(out, e.session.Clone())
		}
	}
	return out
}

// ActiveCount reports how many sessions are currently active.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.session.Active {
			n++
		}
	}
	return n
}

// AppendFrame records a frame in the session history.
func (r *Registry) AppendFrame(id string, frame movie.Frame) error {
	return r.append(id, func(s *movie.Session) {
		s.Data.Frames = append(s.Data.Frames, frame)
	})
}

// AppendSubtitles records a batch of subtitles in the session history.
func (r *Registry) AppendSubtitles(id string, subs []movie.Subtitle) error {
	return r.append(id, func(s *movie.Session) {
		s.Data.Subtitles = append(s.Data.Subtitles, subs...)
	})
}

// AppendAudio records an audio span in the session history.
func (r *Registry) AppendAudio(id string, span movie.AudioSpan) error {
	return r.append(id, func(s *movie.Session) {
		s.Data.Audio = append(s.Data.Audio, span)
	})
}

// AppendMemory records an analysis memory in the session history.
func (r *Registry) AppendMemory(id string, mem movie.Memory) error {
	return r.append(id, func(s *movie.Session) {
		s.Data.Memories = append(s.Data.Memories, mem)
	})
}

func (r *Registry) append(id string, mutate func(*movie.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || !e.session.Active {
		return movie.ErrSessionNotFound
	}
	mutate(e.session)
	return nil
}

// Shutdown ends every active session. Used on process exit.
func (r *Registry) Shutdown() {
	for _, s := range r.Active() {
		if _, err := r.End(s.ID); err != nil {
			r.logger.Warn(logging.CategorySession, "shutdown_end_failed", s.ID, err.Error(), nil)
		}
	}
}
