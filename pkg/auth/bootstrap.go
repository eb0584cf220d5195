package auth

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"nhkeasy/pkg/config"
	"nhkeasy/pkg/errors"
	"nhkeasy/pkg/logger"
)

// stealthScript hides the most common automation fingerprint before any
// page script runs.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// Bootstrapper mints an access credential by driving a browser through the
// site's consent dialogs. The token is generated server-side once the terms
// are acknowledged; no login credentials are involved.
type Bootstrapper struct {
	cfg    *config.AuthConfig
	logger logger.Logger
}

// NewBootstrapper creates a credential bootstrapper
func NewBootstrapper(cfg *config.AuthConfig, log logger.Logger) *Bootstrapper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Bootstrapper{cfg: cfg, logger: log}
}

// AcquireCredential runs the consent flow and returns the extracted access
// credential. The browser context is released on every exit path. On flow
// failure a screenshot and page dump are written for postmortem inspection
// before the error is returned.
func (b *Bootstrapper) AcquireCredential(ctx context.Context) (*Credential, error) {
	b.logger.Info("starting automated terms acceptance")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("lang", b.cfg.Locale),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	token, err := b.runConsentFlow(browserCtx)
	if err != nil {
		b.captureDiagnostics(browserCtx)
		return nil, err
	}

	credential, err := NewCredential(token, time.Now())
	if err != nil {
		return nil, err
	}

	if credential.Claims == nil {
		// The raw token is still usable; only the diagnostics suffer.
		b.logger.Warn("token claims could not be decoded")
		return credential, nil
	}

	if !credential.Claims.ExpiresAt.IsZero() {
		b.logger.InfoWithFields("authentication token obtained", map[string]interface{}{
			"expires": credential.Claims.ExpiresAt,
		})
	} else {
		b.logger.Info("authentication token obtained")
	}

	return credential, nil
}

// runConsentFlow navigates to the entry page, resolves the consent dialogs
// and extracts the credential cookie.
func (b *Bootstrapper) runConsentFlow(ctx context.Context) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigationTimeout)
	defer cancel()

	b.logger.WithField("url", b.cfg.EntryURL).Info("navigating to entry page")

	err := chromedp.Run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetTimezoneOverride(b.cfg.Timezone).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetLocaleOverride().WithLocale(b.cfg.Locale).Do(ctx)
		}),
		chromedp.Navigate(b.cfg.EntryURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Give client-side scripts time to render the dialogs
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return "", errors.NewAuthError("failed to load entry page: %v", err)
	}

	noticeDismissed := b.resolveRegionalNotice(ctx)
	termsAccepted := b.resolveTermsDialog(ctx)

	switch {
	case termsAccepted:
		b.logger.Info("terms dialog resolved, waiting for token generation")
	case noticeDismissed:
		b.logger.Info("regional notice dismissed, waiting for token")
	default:
		b.logger.Info("no dialogs found, token may already be set")
	}

	b.waitForQuiescence(ctx)

	// Cookie writes can land after the last response; absorb them.
	_ = chromedp.Run(ctx, chromedp.Sleep(b.cfg.SettleDelay))

	return b.extractToken(ctx)
}

// resolveRegionalNotice handles the "for users abroad" notice (stage one of
// the consent protocol). A missing notice means it was already dismissed or
// never shown for this region, which is not an error.
func (b *Bootstrapper) resolveRegionalNotice(ctx context.Context) bool {
	for _, probe := range regionalNoticeProbes() {
		if !b.probeVisible(ctx, probe) {
			continue
		}
		b.logger.WithField("probe", probe.name).Info("found regional notice control")

		if !b.clickProbe(ctx, probe) {
			continue
		}

		if b.waitProbeHidden(ctx, probe) {
			b.logger.Info("regional notice dismissed")
			return true
		}

		// Still visible after the click; force it and let the page settle
		b.logger.WithField("probe", probe.name).Warn("control still visible after click, forcing")
		b.forceClickProbe(ctx, probe)
		_ = chromedp.Run(ctx, chromedp.Sleep(2*time.Second))
		return true
	}

	b.logger.Debug("no regional notice control found")
	return false
}

// resolveTermsDialog handles the terms-acceptance surface (stage two).
// Checkbox and submit control are probed independently; presence of either
// is enough to proceed.
func (b *Bootstrapper) resolveTermsDialog(ctx context.Context) bool {
	checked := false
	for _, probe := range consentCheckboxProbes() {
		if !b.probeExists(ctx, probe) {
			continue
		}
		if b.checkProbe(ctx, probe) {
			b.logger.WithField("probe", probe.name).Info("checked terms acceptance box")
			checked = true
			break
		}
	}

	clicked := false
	for _, probe := range consentSubmitProbes() {
		if !b.probeVisible(ctx, probe) {
			continue
		}
		if b.clickProbe(ctx, probe) {
			b.logger.WithField("probe", probe.name).Info("clicked terms submit control")
			clicked = true
			break
		}
	}

	return checked || clicked
}

// probeVisible reports whether a probe resolves to a visible element.
func (b *Bootstrapper) probeVisible(ctx context.Context, probe dialogProbe) bool {
	probeCtx, cancel := context.WithTimeout(ctx, b.cfg.DialogTimeout)
	defer cancel()

	var found bool
	expr := fmt.Sprintf(`(() => { const el = %s; return el !== null && el !== undefined; })()`, probe.find)
	if err := chromedp.Run(probeCtx, chromedp.Evaluate(expr, &found)); err != nil {
		b.logger.WithError(err).WithField("probe", probe.name).Debug("probe evaluation failed")
		return false
	}
	return found
}

// probeExists is probeVisible without the visibility requirement; the
// finder itself decides.
func (b *Bootstrapper) probeExists(ctx context.Context, probe dialogProbe) bool {
	return b.probeVisible(ctx, probe)
}

// clickProbe clicks the element a probe resolves to.
func (b *Bootstrapper) clickProbe(ctx context.Context, probe dialogProbe) bool {
	clickCtx, cancel := context.WithTimeout(ctx, b.cfg.DialogTimeout)
	defer cancel()

	var clicked bool
	expr := fmt.Sprintf(
		`(() => { const el = %s; if (!el) return false; el.scrollIntoView({block: 'center'}); el.click(); return true; })()`,
		probe.find)
	if err := chromedp.Run(clickCtx, chromedp.Evaluate(expr, &clicked)); err != nil {
		b.logger.WithError(err).WithField("probe", probe.name).Debug("probe click failed")
		return false
	}
	return clicked
}

// forceClickProbe dispatches synthetic mouse events directly at the
// element, bypassing whatever swallowed the regular click.
func (b *Bootstrapper) forceClickProbe(ctx context.Context, probe dialogProbe) {
	clickCtx, cancel := context.WithTimeout(ctx, b.cfg.DialogTimeout)
	defer cancel()

	var clicked bool
	expr := fmt.Sprintf(
		`(() => {
			const el = %s;
			if (!el) return false;
			for (const type of ['mousedown', 'mouseup', 'click']) {
				el.dispatchEvent(new MouseEvent(type, { bubbles: true, cancelable: true, view: window }));
			}
			return true;
		})()`,
		probe.find)
	if err := chromedp.Run(clickCtx, chromedp.Evaluate(expr, &clicked)); err != nil {
		b.logger.WithError(err).WithField("probe", probe.name).Debug("force click failed")
	}
}

// checkProbe checks a checkbox-style control and fires its change event.
func (b *Bootstrapper) checkProbe(ctx context.Context, probe dialogProbe) bool {
	checkCtx, cancel := context.WithTimeout(ctx, b.cfg.DialogTimeout)
	defer cancel()

	var checked bool
	expr := fmt.Sprintf(
		`(() => {
			const el = %s;
			if (!el) return false;
			el.checked = true;
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		})()`,
		probe.find)
	if err := chromedp.Run(checkCtx, chromedp.Evaluate(expr, &checked)); err != nil {
		b.logger.WithError(err).WithField("probe", probe.name).Debug("checkbox probe failed")
		return false
	}
	return checked
}

// waitProbeHidden polls until the probed element is gone or hidden, which
// signals that the dialog was dismissed.
func (b *Bootstrapper) waitProbeHidden(ctx context.Context, probe dialogProbe) bool {
	deadline := time.Now().Add(b.cfg.DialogTimeout)
	for time.Now().Before(deadline) {
		if !b.probeVisible(ctx, probe) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	return false
}

// waitForQuiescence waits, bounded by the configured timeout, until the
// page stops issuing resource requests. The credential cookie is written by
// a server response, so quiescence implies it either arrived or never will.
func (b *Bootstrapper) waitForQuiescence(ctx context.Context) {
	deadline := time.Now().Add(b.cfg.QuiesceTimeout)
	var lastCount int

	for time.Now().Before(deadline) {
		var count int
		expr := `window.performance.getEntriesByType('resource').length`
		if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &count)); err != nil {
			return
		}
		if count == lastCount && count > 0 {
			return
		}
		lastCount = count

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// extractToken reads cookies from the current URL plus the canonical origin
// variants, merges them first-occurrence-wins, and selects the credential
// cookie.
func (b *Bootstrapper) extractToken(ctx context.Context) (string, error) {
	var currentURL string
	if err := chromedp.Run(ctx, chromedp.Location(&currentURL)); err != nil {
		return "", errors.NewAuthError("failed to read current URL: %v", err)
	}

	var merged []*network.Cookie
	seen := make(map[string]bool)

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, u := range b.cookieURLs(currentURL) {
			cookies, err := network.GetCookies().WithURLs([]string{u}).Do(ctx)
			if err != nil {
				continue
			}
			for _, c := range cookies {
				if seen[c.Name] {
					continue
				}
				seen[c.Name] = true
				merged = append(merged, c)
			}
		}
		return nil
	}))
	if err != nil {
		return "", errors.NewAuthError("failed to read cookies: %v", err)
	}

	for _, c := range merged {
		if c.Name == b.cfg.CookieName {
			return c.Value, nil
		}
	}

	names := make([]string, 0, len(merged))
	for _, c := range merged {
		names = append(names, c.Name)
	}
	return "", errors.NewAuthError(
		"failed to extract %s token, found cookies: [%s]",
		b.cfg.CookieName, strings.Join(names, ", "))
}

// cookieURLs returns the current URL plus canonical origin variants, to
// tolerate cookie-domain mismatches between the dialog flow and the origin.
func (b *Bootstrapper) cookieURLs(currentURL string) []string {
	urls := []string{currentURL}

	if parsed, err := url.Parse(b.cfg.EntryURL); err == nil && parsed.Host != "" {
		origin := parsed.Scheme + "://" + parsed.Host
		urls = append(urls, origin, origin+"/", b.cfg.EntryURL)
	}

	// Deduplicate while preserving order
	seen := make(map[string]bool, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// captureDiagnostics writes a screenshot and a rendered-markup dump to the
// configured paths. Best effort: failures are logged and swallowed, the
// original flow error matters more.
func (b *Bootstrapper) captureDiagnostics(ctx context.Context) {
	diagCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var screenshot []byte
	if err := chromedp.Run(diagCtx, chromedp.CaptureScreenshot(&screenshot)); err == nil {
		if err := os.WriteFile(b.cfg.ScreenshotPath, screenshot, 0644); err == nil {
			b.logger.WithField("path", b.cfg.ScreenshotPath).Info("saved failure screenshot")
		}
	} else {
		b.logger.WithError(err).Debug("failed to capture screenshot")
	}

	var html string
	if err := chromedp.Run(diagCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err == nil {
		if err := os.WriteFile(b.cfg.PageDumpPath, []byte(html), 0644); err == nil {
			b.logger.WithField("path", b.cfg.PageDumpPath).Info("saved page dump")
		}
	} else {
		b.logger.WithError(err).Debug("failed to capture page markup")
	}
}
