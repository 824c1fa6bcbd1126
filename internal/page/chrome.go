package page

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Chrome renders a page in a local Chrome/Chromium through the DevTools
// protocol and captures the resulting DOM. Use it for listing pages that
// are built client-side.
type Chrome struct {
	URL string
	// Headless is false when the user needs to log in interactively first.
	Headless bool
	// WaitSelector, when set, must be visible before the DOM is captured.
	WaitSelector string
	// Settle is an extra pause after the page is ready.
	Settle time.Duration
	// ExecPath overrides browser discovery.
	ExecPath string
	// UserDataDir keeps cookies and logins between runs.
	UserDataDir string
}

func (c Chrome) Fetch(ctx context.Context) (Page, error) {
	if strings.TrimSpace(c.URL) == "" {
		return Page{}, ErrNoActivePage
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	if c.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.UserDataDir))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tasks := chromedp.Tasks{
		chromedp.Navigate(c.URL),
		chromedp.WaitReady("body"),
	}
	if c.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(c.WaitSelector))
	}
	if c.Settle > 0 {
		tasks = append(tasks, chromedp.Sleep(c.Settle))
	}
	var doc string
	tasks = append(tasks, chromedp.OuterHTML("html", &doc))

	start := time.Now()
	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return Page{}, fmt.Errorf("render %s: %w", c.URL, err)
	}
	log.Debug().Str("url", c.URL).Dur("took", time.Since(start)).Int("bytes", len(doc)).Msg("page rendered")
	return Page{URL: c.URL, HTML: []byte(doc)}, nil
}
