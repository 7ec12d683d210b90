package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/odvcencio/reelview/pkg/capture"
)

type page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *page) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.ctx == nil {
		return context.Canceled
	}
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *page) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	expr := fmt.Sprintf(`document.querySelector(%s) !== null`, strconv.Quote(selector))
	if err := p.run(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, err
	}
	return found, nil
}

func (p *page) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *page) ClickAt(ctx context.Context, x, y float64) error {
	return p.run(ctx, chromedp.MouseClickXY(x, y))
}

func (p *page) ClickByText(ctx context.Context, phrases []string) (string, error) {
	encoded, err := json.Marshal(phrases)
	if err != nil {
		return "", err
	}
	expr := fmt.Sprintf(`(() => {
		const phrases = %s.map(p => p.toLowerCase());
		const controls = document.querySelectorAll('button, [role="button"], input[type="button"], input[type="submit"], a');
		for (const el of controls) {
			const text = ((el.textContent || el.value || '') + '').trim();
			if (!text) continue;
			const lower = text.toLowerCase();
			for (const p of phrases) {
				if (lower.includes(p)) { el.click(); return text; }
			}
		}
		return '';
	})()`, string(encoded))

	var matched string
	if err := p.run(ctx, chromedp.Evaluate(expr, &matched)); err != nil {
		return "", err
	}
	if matched == "" {
		return "", capture.ErrNoTextMatch
	}
	return matched, nil
}

func (p *page) ScrollTo(ctx context.Context, x, y float64) error {
	var ok bool
	expr := fmt.Sprintf(`(window.scrollTo(%v, %v), true)`, x, y)
	return p.run(ctx, chromedp.Evaluate(expr, &ok))
}

func (p *page) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *page) Screenshot(ctx context.Context) ([]byte, error) {
	// Explicit PNG so downstream dimension probing can decode the payload.
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = cdppage.CaptureScreenshot().
			WithFormat(cdppage.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *page) TextContents(ctx context.Context, selector string) ([]string, error) {
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%s))
		.map(el => (el.textContent || '').trim())
		.filter(t => t.length > 0)`, strconv.Quote(selector))

	var texts []string
	if err := p.run(ctx, chromedp.Evaluate(expr, &texts)); err != nil {
		return nil, err
	}
	return texts, nil
}

func (p *page) VideoState(ctx context.Context, selector string) (*capture.VideoState, error) {
	expr := fmt.Sprintf(`(() => {
		const v = document.querySelector(%s);
		if (!v) return null;
		return {
			is_playing: !v.paused,
			current_time: v.currentTime || 0,
			duration: isFinite(v.duration) ? v.duration : 0,
			volume: v.volume || 0,
			playback_rate: v.playbackRate || 1
		};
	})()`, strconv.Quote(selector))

	var state *capture.VideoState
	if err := p.run(ctx, chromedp.Evaluate(expr, &state)); err != nil {
		return nil, err
	}
	return state, nil
}

func (p *page) Close() error {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.ctx = nil
	}
	return nil
}
