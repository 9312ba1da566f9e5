package headless

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/DataHenHQ/useragent"
	"github.com/chromedp/chromedp"
)

// Default settings for headless browser operation.
const (
	DefaultTimeout    = 45 * time.Second
	DefaultWaitBuffer = 2 * time.Second
)

// WaitStrategy is a function that performs the necessary tasks to determine
// when a dynamic page has finished loading all content.
type WaitStrategy func(ctx context.Context, url string) error

// WaitForBody navigates to url and waits until the document body is ready.
// It suits store pages that render their offers on load without paging.
func WaitForBody(ctx context.Context, url string) error {
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => false, configurable: true});`, nil),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("could not navigate to '%s': %w", url, err)
	}
	return nil
}

// FetchRenderedContent navigates to a URL, uses the provided WaitStrategy to determine
// when dynamic content has finished loading, and extracts the content defined by
// the extractionSelector as an io.Reader.
//
// Arguments:
// - parentCtx: The context inherited from the caller. Its deadline, if sooner, wins.
// - url: The target URL.
// - strategy: A function encapsulating site-specific logic to pause execution.
// - extractionSelector: The CSS selector identifying the HTML node to extract (e.g., "html").
// - logf: Receives chromedp's log output.
func FetchRenderedContent(parentCtx context.Context, url string, strategy WaitStrategy, extractionSelector string, logf func(string, ...interface{})) (io.Reader, error) {
	ua, err := useragent.Desktop()
	if err != nil {
		return nil, fmt.Errorf("could not generate random UA: %w", err)
	}
	// 1. Setup Context with Timeout
	ctx, cancel := context.WithTimeout(parentCtx, DefaultTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(ua),
		chromedp.Headless,
		chromedp.WindowSize(1920, 1080),

		// Core Evasion Flags
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("no-first-run", true),

		// Required in containers
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("single-process", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	// 2. Create a Chrome instance context derived from the timed context.
	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logf))
	defer chromeCancel()

	// 3. Run the waiting strategy (which includes navigation)
	if err := strategy(chromeCtx, url); err != nil {
		return nil, fmt.Errorf("wait strategy failed for %s: %w", url, err)
	}

	var fullHTML string
	// 4. Extract the final HTML from the extractionSelector
	tasks := chromedp.Tasks{
		chromedp.Sleep(DefaultWaitBuffer),
		chromedp.OuterHTML(extractionSelector, &fullHTML, chromedp.ByQuery),
	}
	if err := chromedp.Run(chromeCtx, tasks); err != nil {
		return nil, fmt.Errorf("failed to extract HTML from selector '%s': %w", extractionSelector, err)
	}

	// 5. Convert the content to an io.Reader
	return bytes.NewReader([]byte(fullHTML)), nil
}
