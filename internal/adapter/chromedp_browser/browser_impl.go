package chromedp_browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/repository"
)

const (
	hideWebdriver  = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`
	defaultTimeout = 10 * time.Second
	startupTimeout = 60 * time.Second
)

// Factory starts Chrome sessions with the stealth flags the target site needs.
type Factory struct {
	headless bool
	timeout  time.Duration
	agents   *AgentRotator
	logger   *zap.Logger
}

// NewFactory creates a Factory. pageLoadTimeout bounds navigations and
// single browser actions.
func NewFactory(headless bool, pageLoadTimeout time.Duration, agents *AgentRotator, logger *zap.Logger) *Factory {
	if pageLoadTimeout <= 0 {
		pageLoadTimeout = defaultTimeout
	}
	if agents == nil {
		agents = NewAgentRotator(nil)
	}
	return &Factory{headless: headless, timeout: pageLoadTimeout, agents: agents, logger: logger}
}

// Open launches a browser. The session outlives ctx; ctx only bounds startup.
func (f *Factory) Open(ctx context.Context) (repository.Browser, error) {
	ua := f.agents.Next()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.headless),
		chromedp.Flag("disable-gpu", f.headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-crash-reporter", true),
		chromedp.Flag("start-maximized", true),
		chromedp.UserAgent(ua),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	sugar := f.logger.Sugar()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	b := &Browser{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		timeout:     f.timeout,
		logger:      f.logger,
	}

	err := b.start(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
		emulation.SetUserAgentOverride(ua).
			WithAcceptLanguage("en-US,en").
			WithPlatform("Win32"),
	)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	f.logger.Info("browser started", zap.Bool("headless", f.headless), zap.String("user_agent", ua))
	return b, nil
}

// Browser is one chromedp tab implementing repository.Browser.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *zap.Logger
}

// start makes the first Run on the tab, which launches Chrome. The process is
// bound to the context of that Run, so it gets the tab context itself; ctx
// and startupTimeout are enforced by closing the browser instead.
func (b *Browser) start(ctx context.Context, actions ...chromedp.Action) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(b.ctx, actions...) }()

	timer := time.NewTimer(startupTimeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		_ = b.Close()
		<-errc
		return ctx.Err()
	case <-timer.C:
		_ = b.Close()
		<-errc
		return fmt.Errorf("browser did not start within %s", startupTimeout)
	}
}

// run executes actions on the tab. The call is bounded by timeout and by ctx;
// neither closes the tab.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if b.ctx.Err() != nil {
		return repository.ErrSessionClosed
	}
	runCtx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !b.alive() {
		return fmt.Errorf("%w: %v", repository.ErrSessionClosed, err)
	}
	return err
}

// alive asks the browser process for its version.
func (b *Browser) alive() bool {
	if b.ctx.Err() != nil {
		return false
	}
	c := chromedp.FromContext(b.ctx)
	if c == nil || c.Browser == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(b.ctx, 3*time.Second)
	defer cancel()
	_, _, _, _, _, err := browser.GetVersion().Do(cdp.WithExecutor(ctx, c.Browser))
	return err == nil
}

// wait runs a selector wait; a timeout means the element never showed up.
func (b *Browser) wait(ctx context.Context, selector string, timeout time.Duration, actions ...chromedp.Action) error {
	err := b.run(ctx, timeout, actions...)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", repository.ErrElementNotFound, selector)
	}
	return err
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, b.timeout, chromedp.Navigate(url))
}

func (b *Browser) Click(ctx context.Context, selector string) error {
	return b.wait(ctx, selector, b.timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (b *Browser) ClickJS(ctx context.Context, selector string) error {
	var clicked bool
	err := b.run(ctx, b.timeout, chromedp.Evaluate(fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); if (!el) return false; el.click(); return true; })()`,
		jsString(selector)), &clicked))
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: %s", repository.ErrElementNotFound, selector)
	}
	return nil
}

func (b *Browser) SendKeys(ctx context.Context, selector, keys string) error {
	return b.wait(ctx, selector, b.timeout, chromedp.SendKeys(selector, keys, chromedp.ByQuery))
}

func (b *Browser) PressEnter(ctx context.Context, selector string) error {
	return b.SendKeys(ctx, selector, kb.Enter)
}

func (b *Browser) DispatchInput(ctx context.Context, selector string) error {
	var ok bool
	err := b.run(ctx, b.timeout, chromedp.Evaluate(fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); if (!el) return false; el.dispatchEvent(new Event('input', { bubbles: true })); return true; })()`,
		jsString(selector)), &ok))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrElementNotFound, selector)
	}
	return nil
}

func (b *Browser) Evaluate(ctx context.Context, script string, res any) error {
	return b.run(ctx, b.timeout, chromedp.Evaluate(script, res))
}

func (b *Browser) ScrollToBottom(ctx context.Context) error {
	return b.run(ctx, b.timeout, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (b *Browser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return b.wait(ctx, selector, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (b *Browser) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	err := b.run(ctx, b.timeout, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (b *Browser) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	err := b.run(ctx, b.timeout, chromedp.Evaluate(fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); const v = el ? el.getAttribute(%s) : null; return {found: v !== null, value: v || ""}; })()`,
		jsString(selector), jsString(name)), &res))
	if err != nil {
		return "", false, err
	}
	return res.Value, res.Found, nil
}

func (b *Browser) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, b.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (b *Browser) Back(ctx context.Context) error {
	return b.run(ctx, b.timeout, chromedp.NavigateBack())
}

func (b *Browser) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := b.run(ctx, b.timeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Close shuts down the tab and the browser process. Safe to call twice.
func (b *Browser) Close() error {
	var err error
	if b.ctx.Err() == nil {
		err = chromedp.Cancel(b.ctx)
	}
	b.cancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Warn("browser close", zap.Error(err))
		return err
	}
	return nil
}

func jsString(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}
