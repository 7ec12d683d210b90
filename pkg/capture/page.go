// Package capture drives a single browser page against a web video player:
// navigation, overlay dismissal, playback start, frame capture, subtitle
// extraction, and playback-state sampling. The browser itself is consumed
// through the Page port; adapters live in subpackages.
package capture

import (
	"context"
	"errors"
	"time"
)

// ErrNoTextMatch is returned by ClickByText when no control matched.
var ErrNoTextMatch = errors.New("no control matched by text")

// VideoState mirrors the native fields of an HTML video element.
type VideoState struct {
	IsPlaying    bool    `json:"is_playing"`
	CurrentTime  float64 `json:"current_time"`
	Duration     float64 `json:"duration"`
	Volume       float64 `json:"volume"`
	PlaybackRate float64 `json:"playback_rate"`
}

// Page is the port implemented by browser runtime adapters. One Page maps
// to one open tab. All methods honor context cancellation and deadlines.
type Page interface {
	// Navigate loads the URL and waits for the page to be ready.
	Navigate(ctx context.Context, url string) error

	// Exists probes whether at least one element matches the selector.
	Exists(ctx context.Context, selector string) (bool, error)

	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error

	// ClickAt clicks at fixed viewport coordinates.
	ClickAt(ctx context.Context, x, y float64) error

	// ClickByText scans interactive controls and clicks the first whose
	// visible text contains one of the phrases (case-insensitive).
	// Returns the matched text, or ErrNoTextMatch.
	ClickByText(ctx context.Context, phrases []string) (string, error)

	// ScrollTo scrolls the viewport to the given document offset.
	ScrollTo(ctx context.Context, x, y float64) error

	// ScreenshotElement captures the first element matching the selector
	// as an encoded image.
	ScreenshotElement(ctx context.Context, selector string) ([]byte, error)

	// Screenshot captures the full viewport.
	Screenshot(ctx context.Context) ([]byte, error)

	// TextContents returns the trimmed text content of every element
	// matching the selector.
	TextContents(ctx context.Context, selector string) ([]string, error)

	// VideoState reads the native playback fields of the first element
	// matching the selector, or nil if no such element exists.
	VideoState(ctx context.Context, selector string) (*VideoState, error)

	// Close closes the page. Idempotent.
	Close() error
}

// Browser owns a browser process or connection and opens pages on it.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Opener acquires a browser for an engine. The chromedp adapter provides
// the production implementation (attach to a running instance, fall back
// to launching one); tests substitute fakes.
type Opener func(ctx context.Context, cfg Config) (Browser, error)

// Config holds browser acquisition and navigation settings.
type Config struct {
	// Headless controls the launched browser's mode. Ignored when
	// attaching to an already-running instance.
	Headless bool

	// AttachURL is the debug endpoint of an externally supplied browser.
	// Attachment is preferred; launching is the fallback.
	AttachURL string

	// NavigationTimeout bounds page loads. Defaults to 30s.
	NavigationTimeout time.Duration
}

// DefaultConfig returns the recommended engine defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		AttachURL:         "http://localhost:9222",
		NavigationTimeout: 30 * time.Second,
	}
}
