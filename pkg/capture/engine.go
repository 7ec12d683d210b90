package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
)

// Engine owns one browser page and produces artifacts from the player on
// it. Write-style operations (Initialize, Navigate, CaptureFrame) fail on
// broken preconditions; read-style operations (ExtractSubtitles,
// ReadPlaybackState) degrade to empty or zeroed results instead, because
// partial telemetry beats a dead pipeline.
type Engine struct {
	cfg     Config
	profile Profile
	opener  Opener
	logger  *logging.Logger
	metrics *Metrics

	// mu guards the handle fields. Capture operations hold the read lock
	// for their duration; Cleanup takes the write lock, so a session
	// ending cannot yank the page out from under an in-flight capture.
	mu      sync.RWMutex
	browser Browser
	page    Page
}

// NewEngine creates an engine for one session. The engine holds no browser
// resources until Initialize.
func NewEngine(opener Opener, profile Profile, cfg Config, logger *logging.Logger, metrics *Metrics) *Engine {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Engine{
		cfg:     cfg,
		profile: profile,
		opener:  opener,
		logger:  logger,
		metrics: metrics,
	}
}

// Profile returns the platform profile the engine was built with.
func (e *Engine) Profile() Profile {
	return e.profile
}

// Initialized reports whether a page is open.
func (e *Engine) Initialized() bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.page != nil
}

// Initialize acquires a browser and opens the engine's single page.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page != nil {
		return nil
	}

	browser, err := e.opener(ctx, e.cfg)
	if err != nil {
		return movie.WrapError(err, movie.CodeInitFailed, "browser acquisition failed")
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		_ = browser.Close()
		return movie.WrapError(err, movie.CodeInitFailed, "opening page failed")
	}

	e.browser = browser
	e.page = page
	e.logger.Info(logging.CategoryCapture, "engine_initialized", "", "browser page ready", map[string]any{
		"platform": string(e.profile.Platform),
		"headless": e.cfg.Headless,
	})
	return nil
}

// Navigate loads the target URL, dismisses consent overlays, and, when the
// profile asks for it, runs the playback-start sequence.
func (e *Engine) Navigate(ctx context.Context, url string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.page == nil {
		return movie.ErrNotInitialized
	}

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	defer cancel()

	if err := e.page.Navigate(navCtx, url); err != nil {
		return movie.WrapError(err, movie.CodeNavigationFailed, "loading "+url+" failed")
	}
	e.metrics.NavigateCount.Add(1)

	e.dismissOverlays(ctx)

	if e.profile.AutoPlay {
		e.startPlayback(ctx)
	}

	return nil
}

// dismissOverlays clears cookie banners. Best-effort: a page without a
// banner is the common case, so nothing here escalates.
func (e *Engine) dismissOverlays(ctx context.Context) {
	// Banners render asynchronously after load; poll briefly for one
	// before concluding there is none.
	_ = WaitUntil(ctx, DefaultWait(3*time.Second), func(ctx context.Context) (bool, error) {
		_, ok := Resolve(ctx, e.page, RoleCookieAccept, e.profile.CookieSelectors)
		return ok, nil
	})

	clicked, ok := DismissCookieConsent(ctx, e.page, e.profile.CookieSelectors)
	if ok {
		e.logger.Info(logging.CategoryCapture, "cookie_dismissed", "", "consent control clicked", map[string]any{
			"control": clicked,
		})
	} else {
		e.logger.Debug(logging.CategoryCapture, "cookie_absent", "", "no consent banner found", nil)
	}
}

// startPlayback scrolls the player into view and clicks it. Falls back to
// a fixed-coordinate body click when no player target resolves.
func (e *Engine) startPlayback(ctx context.Context) {
	// Wait for the player to exist before interacting with it. A profile
	// without video selectors skips straight to the click sequence.
	if selectors := e.profile.VideoSelectors; len(selectors) > 0 {
		_ = WaitUntil(ctx, DefaultWait(5*time.Second), func(ctx context.Context) (bool, error) {
			return e.page.Exists(ctx, selectors[len(selectors)-1])
		})
	}

	if err := e.page.ScrollTo(ctx, 0, e.profile.ScrollOffset); err != nil {
		e.logger.Debug(logging.CategoryCapture, "scroll_failed", "", err.Error(), nil)
	}

	if res, ok := Resolve(ctx, e.page, RolePlayerTarget, e.profile.PlayerTargets); ok {
		if err := e.page.Click(ctx, res.Selector); err == nil {
			e.logger.Info(logging.CategoryCapture, "playback_started", "", "player target clicked", map[string]any{
				"selector": res.Selector,
			})
			return
		}
	}

	if err := e.page.ClickAt(ctx, e.profile.FallbackClick.X, e.profile.FallbackClick.Y); err != nil {
		e.logger.Warn(logging.CategoryCapture, "playback_click_failed", "", err.Error(), nil)
		return
	}
	e.logger.Info(logging.CategoryCapture, "playback_started", "", "fallback coordinate click", nil)
}

// CaptureFrame screenshots the video element, or the full viewport when no
// video selector resolves (degraded capture). Frame dimensions come from
// the PNG payload; the profile's nominal resolution is used only when the
// payload cannot be decoded.
func (e *Engine) CaptureFrame(ctx context.Context, sessionID string) (movie.Frame, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.page == nil {
		return movie.Frame{}, movie.ErrNotInitialized
	}

	var (
		shot []byte
		err  error
	)
	if res, ok := Resolve(ctx, e.page, RoleVideo, e.profile.VideoSelectors); ok {
		shot, err = e.page.ScreenshotElement(ctx, res.Selector)
	} else {
		e.metrics.DegradedCaptures.Add(1)
		e.logger.Warn(logging.CategoryCapture, "degraded_capture", sessionID, "no video element, capturing viewport", nil)
		shot, err = e.page.Screenshot(ctx)
	}
	if err != nil {
		return movie.Frame{}, movie.WrapError(err, movie.CodeInternal, "screenshot failed")
	}

	width, height := e.profile.NominalWidth, e.profile.NominalHeight
	if cfg, decodeErr := png.DecodeConfig(bytes.NewReader(shot)); decodeErr == nil {
		width, height = cfg.Width, cfg.Height
	}

	e.metrics.FramesCaptured.Add(1)
	now := time.Now()
	return movie.Frame{
		ID:          "frame_" + uuid.NewString(),
		SessionID:   sessionID,
		Timestamp:   now.UnixMilli(),
		ImageData:   base64.StdEncoding.EncodeToString(shot),
		Width:       width,
		Height:      height,
		ExtractedAt: now,
	}, nil
}

// ExtractSubtitles returns one artifact per non-empty caption node. Never
// fails: any extraction problem yields an empty slice. Start and end
// timing stays unset; caption nodes expose no timeline position.
func (e *Engine) ExtractSubtitles(ctx context.Context, sessionID string) []movie.Subtitle {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.page == nil {
		return nil
	}

	var texts []string
	for _, selector := range e.profile.SubtitleSelectors {
		found, err := e.page.TextContents(ctx, selector)
		if err != nil {
			continue
		}
		if len(found) > 0 {
			texts = found
			break
		}
	}

	now := time.Now()
	subtitles := make([]movie.Subtitle, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			continue
		}
		subtitles = append(subtitles, movie.Subtitle{
			ID:          "subtitle_" + uuid.NewString(),
			SessionID:   sessionID,
			Text:        text,
			Language:    e.profile.SubtitleLanguage,
			ExtractedAt: now,
		})
	}

	if len(subtitles) > 0 {
		e.metrics.SubtitleBatches.Add(1)
	}
	return subtitles
}

// ReadPlaybackState samples the video element's native fields. Never
// fails: without a video element it reports a zeroed, not-playing state
// with the nominal 1.0 rate.
func (e *Engine) ReadPlaybackState(ctx context.Context, sessionID string) movie.PlaybackState {
	state := movie.PlaybackState{
		SessionID:    sessionID,
		PlaybackRate: 1.0,
		Timestamp:    time.Now(),
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.page == nil {
		return state
	}

	e.metrics.PlaybackReads.Add(1)

	res, ok := Resolve(ctx, e.page, RoleVideo, e.profile.VideoSelectors)
	if !ok {
		return state
	}
	vs, err := e.page.VideoState(ctx, res.Selector)
	if err != nil || vs == nil {
		return state
	}

	state.IsPlaying = vs.IsPlaying
	state.CurrentTime = vs.CurrentTime
	state.Duration = vs.Duration
	state.Volume = vs.Volume
	state.PlaybackRate = vs.PlaybackRate
	return state
}

// Cleanup releases the page and browser. Idempotent; close failures are
// logged, never returned.
func (e *Engine) Cleanup() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page != nil {
		if err := e.page.Close(); err != nil {
			e.logger.Warn(logging.CategoryCapture, "page_close_failed", "", err.Error(), nil)
		}
		e.page = nil
	}
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			e.logger.Warn(logging.CategoryCapture, "browser_close_failed", "", err.Error(), nil)
		}
		e.browser = nil
	}
}
