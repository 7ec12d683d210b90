// Package chrome adapts a Chrome/Chromium instance to the capture.Page
// port via the DevTools protocol. Attaching to an already-running browser
// (the user's own, with their streaming logins) is preferred; launching an
// isolated instance is the fallback.
package chrome

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/odvcencio/reelview/pkg/capture"
)

// Browser holds a DevTools allocator, either attached or launched.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	attached    bool
}

// Connect acquires a browser per the config: attach to cfg.AttachURL
// first, launch a new instance if the endpoint does not answer.
func Connect(ctx context.Context, cfg capture.Config) (capture.Browser, error) {
	if cfg.AttachURL != "" {
		if b, err := attach(ctx, cfg.AttachURL); err == nil {
			return b, nil
		}
	}
	return launch(cfg)
}

// Opener returns Connect as a capture.Opener.
func Opener() capture.Opener {
	return Connect
}

func attach(ctx context.Context, attachURL string) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), attachURL)

	// Probe with a throwaway tab; a dead endpoint only surfaces once an
	// action runs against it.
	probeCtx, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()
	timeoutCtx, timeoutCancel := context.WithTimeout(probeCtx, 3*time.Second)
	defer timeoutCancel()

	if err := chromedp.Run(timeoutCtx); err != nil {
		allocCancel()
		return nil, err
	}

	return &Browser{allocCtx: allocCtx, allocCancel: allocCancel, attached: true}, nil
}

func launch(cfg capture.Config) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{allocCtx: allocCtx, allocCancel: allocCancel}, nil
}

// NewPage opens one tab on the browser.
func (b *Browser) NewPage(ctx context.Context) (capture.Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)

	// Materialize the tab now so acquisition failures surface here rather
	// than on first navigation, and pin a desktop-sized viewport so player
	// pages do not fall into mobile layouts.
	startCtx, startCancel := context.WithTimeout(tabCtx, 10*time.Second)
	defer startCancel()
	err := chromedp.Run(startCtx,
		emulation.SetDeviceMetricsOverride(1920, 1080, 1, false),
	)
	if err != nil {
		tabCancel()
		return nil, err
	}

	return &page{ctx: tabCtx, cancel: tabCancel}, nil
}

// Close releases the allocator. For an attached browser this only drops
// the connection; the user's browser stays up.
func (b *Browser) Close() error {
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	return nil
}
