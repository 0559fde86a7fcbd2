package browser

import (
	"context"

	"github.com/chromedp/chromedp"
)

// dismissOverlayJS clicks common close buttons, then removes any fixed
// modal layer still covering the page. It returns the number of elements it
// acted on.
const dismissOverlayJS = `(() => {
  let n = 0;
  const closers = [
    '[aria-label="Close"]', '[aria-label="close"]', 'button.close', '.modal-close',
    '.popup-close', '.newsletter-close', '[data-dismiss="modal"]', '[data-close]',
  ];
  for (const sel of closers) {
    document.querySelectorAll(sel).forEach(el => {
      try { el.click(); n++; } catch (e) {}
    });
  }
  document.querySelectorAll('.modal, .overlay, .popup, .newsletter-signup, [role="dialog"]').forEach(el => {
    const pos = getComputedStyle(el).position;
    if (pos === 'fixed' || pos === 'sticky') { el.remove(); n++; }
  });
  if (document.body) document.body.style.overflow = 'auto';
  return n;
})()`

func dismissOverlays(ctx context.Context) (int, error) {
	var n int
	if err := chromedp.Run(ctx, chromedp.Evaluate(dismissOverlayJS, &n)); err != nil {
		return 0, err
	}
	return n, nil
}
