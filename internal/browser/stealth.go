package browser

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript hides the most common headless Chrome tells. It runs before
// any page script on every new document.
const stealthScript = `
(() => {
  const define = (obj, prop, value) => {
    try { Object.defineProperty(obj, prop, { get: () => value, configurable: true }); } catch (e) {}
  };

  define(navigator, 'webdriver', undefined);
  define(navigator, 'languages', ['en-US', 'en']);
  define(navigator, 'platform', 'Win32');
  if (!navigator.hardwareConcurrency) define(navigator, 'hardwareConcurrency', 4);
  if (!navigator.deviceMemory) define(navigator, 'deviceMemory', 8);

  if (navigator.plugins.length === 0) {
    define(navigator, 'plugins', [
      { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
      { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
    ]);
  }

  if (!window.chrome) window.chrome = {};
  if (!window.chrome.runtime) window.chrome.runtime = {};

  const query = window.navigator.permissions && window.navigator.permissions.query;
  if (query) {
    window.navigator.permissions.query = (p) =>
      p && p.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : query.call(window.navigator.permissions, p);
  }

  try {
    const getParameter = WebGLRenderingContext.prototype.getParameter;
    WebGLRenderingContext.prototype.getParameter = function (p) {
      if (p === 37445) return 'Intel Inc.';
      if (p === 37446) return 'Intel Iris OpenGL Engine';
      return getParameter.call(this, p);
    };
  } catch (e) {}
})();
`

// allocatorOptions returns the Chrome flags for a headless session.
func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Stealth {
		opts = append(opts,
			chromedp.Flag("excludeSwitches", "enable-automation"),
			chromedp.Flag("useAutomationExtension", false),
			chromedp.Flag("disable-infobars", true),
			chromedp.Flag("disable-background-timer-throttling", true),
			chromedp.Flag("disable-renderer-backgrounding", true),
			chromedp.Flag("lang", "en-US,en"),
			chromedp.Flag("accept-lang", "en-US,en;q=0.9"),
		)
	}

	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = FindChrome()
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	return opts
}

// injectStealth registers stealthScript for every document in the tab.
func injectStealth() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})
}
