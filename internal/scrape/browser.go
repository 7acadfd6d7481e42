package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"
)

// Browser is the production Renderer: a launcher-managed headless Chrome
// driven through rod, with a load timeout per page and rate-limited
// navigation so the pipeline stays polite to the storefronts.
type Browser struct {
	browser     *rod.Browser
	launch      *launcher.Launcher
	limiter     *rate.Limiter
	loadTimeout time.Duration
	lookTimeout time.Duration
}

type BrowserOptions struct {
	Headless    bool
	LoadTimeout time.Duration
	// RPS bounds page navigations per second; 0 disables pacing.
	RPS float64
}

func NewBrowser(opts BrowserOptions) (*Browser, error) {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 25 * time.Second
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-sandbox").
		Set("disable-dev-shm-usage")

	u, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, err
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	return &Browser{
		browser:     b,
		launch:      l,
		limiter:     limiter,
		loadTimeout: opts.LoadTimeout,
		lookTimeout: 2 * time.Second,
	}, nil
}

func (b *Browser) Open(ctx context.Context, url string) (Page, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, err
	}
	page = page.Context(ctx)

	if err := page.Timeout(b.loadTimeout).WaitLoad(); err != nil {
		_ = page.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrPageTimeout
		}
		return nil, err
	}

	return &rodPage{page: page, url: url, lookTimeout: b.lookTimeout}, nil
}

func (b *Browser) Close() {
	_ = b.browser.Close()
	b.launch.Cleanup()
}

type rodPage struct {
	page        *rod.Page
	url         string
	lookTimeout time.Duration
}

func (p *rodPage) element(selector string) (*rod.Element, error) {
	el, err := p.page.Timeout(p.lookTimeout).Element(selector)
	if err != nil {
		return nil, ErrNotFound
	}
	return el, nil
}

func (p *rodPage) elementX(xpath string) (*rod.Element, error) {
	el, err := p.page.Timeout(p.lookTimeout).ElementX(xpath)
	if err != nil {
		return nil, ErrNotFound
	}
	return el, nil
}

func (p *rodPage) Text(selector string) (string, error) {
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	return elementText(el)
}

func (p *rodPage) TextX(xpath string) (string, error) {
	el, err := p.elementX(xpath)
	if err != nil {
		return "", err
	}
	return elementText(el)
}

func (p *rodPage) Href(selector string) (string, error) {
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	return elementHref(el)
}

func (p *rodPage) HrefX(xpath string) (string, error) {
	el, err := p.elementX(xpath)
	if err != nil {
		return "", err
	}
	return elementHref(el)
}

func (p *rodPage) Scroll(times int, pause time.Duration) {
	for i := 0; i < times; i++ {
		if err := p.page.Mouse.Scroll(0, 1000, 1); err != nil {
			return
		}
		time.Sleep(pause)
	}
}

func (p *rodPage) URL() string { return p.url }

func (p *rodPage) Close() { _ = p.page.Close() }

func elementText(el *rod.Element) (string, error) {
	text, err := el.Text()
	if err != nil {
		return "", ErrNotFound
	}
	return strings.TrimSpace(text), nil
}

func elementHref(el *rod.Element) (string, error) {
	attr, err := el.Attribute("href")
	if err != nil || attr == nil {
		return "", ErrNotFound
	}
	return strings.TrimSpace(*attr), nil
}
