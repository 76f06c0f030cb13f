package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

const dialogBacklog = 32

// PlaywrightLauncher starts Chromium through playwright-go
type PlaywrightLauncher struct {
	Logger *log.Logger
}

// NewPlaywrightLauncher creates a launcher logging to logger (stdout when nil)
func NewPlaywrightLauncher(logger *log.Logger) *PlaywrightLauncher {
	if logger == nil {
		logger = log.New(os.Stdout, "[BROWSER] ", log.LstdFlags)
	}
	return &PlaywrightLauncher{Logger: logger}
}

// Launch installs the driver if asked, starts playwright and opens one page
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Install && os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1" {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		// Fallback: attempt install driver explicitly then retry
		_ = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
		pw, err = playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright after retry: %w", err)
		}
	}

	args := []string{"--disable-dev-shm-usage", "--disable-gpu"}
	if opts.NoSandbox {
		args = append(args, "--no-sandbox")
	}
	br, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
		Args:     args,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	bctx, err := br.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Width,
			Height: opts.Height,
		},
	})
	if err != nil {
		_ = br.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = br.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	if opts.ActionTimeout > 0 {
		page.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))
	}

	d := &playwrightDriver{
		pw:      pw,
		browser: br,
		context: bctx,
		page:    page,
		dialogs: make(chan Dialog, dialogBacklog),
		logger:  l.Logger,
	}
	// Without a listener playwright dismisses dialogs, which cancels confirm()
	// prompts such as "delete all?". Accept them and keep the text for callers.
	page.OnDialog(d.onDialog)

	l.Logger.Printf("Chromium session started (headless=%t, viewport=%dx%d)", opts.Headless, opts.Width, opts.Height)
	return d, nil
}

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	dialogs chan Dialog
	logger  *log.Logger
}

func (d *playwrightDriver) onDialog(dialog playwright.Dialog) {
	info := Dialog{Type: dialog.Type(), Message: dialog.Message()}
	if err := dialog.Accept(); err != nil {
		d.logger.Printf("could not accept %s dialog: %v", info.Type, err)
	}
	select {
	case d.dialogs <- info:
	default:
		d.logger.Printf("dialog backlog full, dropping: %q", info.Message)
	}
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil && strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
		return fmt.Errorf("redirect loop navigating to %s: %w", url, err)
	}
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (d *playwrightDriver) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (d *playwrightDriver) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.Title()
}

func (d *playwrightDriver) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.Content()
}

func (d *playwrightDriver) FindElements(ctx context.Context, sel Selector) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wrapAll(d.page.Locator(sel.CSS()))
}

func (d *playwrightDriver) NextDialog(ctx context.Context, budget time.Duration) (Dialog, error) {
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case dlg := <-d.dialogs:
		return dlg, nil
	case <-timer.C:
		return Dialog{}, ErrNoDialog
	case <-ctx.Done():
		return Dialog{}, ctx.Err()
	}
}

func (d *playwrightDriver) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	_, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	return err
}

// Close releases page, context, browser and the playwright driver in that order
func (d *playwrightDriver) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.page != nil {
		keep(d.page.Close())
	}
	if d.context != nil {
		keep(d.context.Close())
	}
	if d.browser != nil {
		keep(d.browser.Close())
	}
	if d.pw != nil {
		keep(d.pw.Stop())
	}
	d.logger.Println("Chromium session closed")
	return firstErr
}

type playwrightElement struct {
	loc playwright.Locator
}

func wrapAll(loc playwright.Locator) ([]Element, error) {
	all, err := loc.All()
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(all))
	for _, l := range all {
		out = append(out, &playwrightElement{loc: l})
	}
	return out, nil
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click()
}

func (e *playwrightElement) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Fill(text)
}

func (e *playwrightElement) SelectValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}})
	return err
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.InnerText()
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.GetAttribute(name)
}

func (e *playwrightElement) Property(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.Evaluate("(el, name) => { const v = el[name]; return v == null ? '' : String(v); }", name)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (e *playwrightElement) FindElements(ctx context.Context, sel Selector) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wrapAll(e.loc.Locator(sel.CSS()))
}
