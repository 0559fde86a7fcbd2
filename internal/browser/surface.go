package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/pppscrape/pkg/dom"
)

// queryTimeout bounds a single query against the live page.
const queryTimeout = 10 * time.Second

// liveSurface implements dom.Surface by evaluating JavaScript in an open tab.
// Its matching rules mirror dom.Document so strategies behave identically.
type liveSurface struct {
	tab context.Context
}

func (s *liveSurface) eval(ctx context.Context, expr string, out any) error {
	runCtx, cancel := context.WithTimeout(s.tab, queryTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("evaluate on live page: %w", err)
	}
	return nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Texts implements dom.Surface.
func (s *liveSurface) Texts(ctx context.Context, selector string) ([]string, error) {
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => e.textContent.trim())`, jsString(selector))
	var out []string
	if err := s.eval(ctx, expr, &out); err != nil {
		return nil, err
	}
	return out, nil
}

const labeledValueJS = `(() => {
  const labelSel = %s, label = %s, valueSel = %s;
  const nodes = Array.from(document.querySelectorAll(labelSel + ', ' + valueSel));
  let at = -1;
  for (let i = 0; i < nodes.length; i++) {
    const n = nodes[i];
    if (at < 0) {
      if (n.matches(labelSel) && n.textContent.trim() === label) at = i;
      continue;
    }
    if (n.matches(valueSel)) return { found: true, value: n.textContent.trim() };
  }
  if (at < 0) return { found: false, value: '' };
  const parent = nodes[at].parentElement;
  const v = parent ? parent.querySelector(valueSel) : null;
  return v ? { found: true, value: v.textContent.trim() } : { found: false, value: '' };
})()`

// LabeledValue implements dom.Surface.
func (s *liveSurface) LabeledValue(ctx context.Context, labelSelector, label, valueSelector string) (string, bool, error) {
	expr := fmt.Sprintf(labeledValueJS, jsString(labelSelector), jsString(label), jsString(valueSelector))
	var out struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	if err := s.eval(ctx, expr, &out); err != nil {
		return "", false, err
	}
	return out.Value, out.Found, nil
}

const rowsJS = `Array.from(document.querySelectorAll(%s)).map(r => {
  const k = r.querySelector(%s), v = r.querySelector(%s);
  return k && v ? { key: k.textContent.trim(), value: v.textContent.trim() } : null;
}).filter(Boolean)`

// Rows implements dom.Surface.
func (s *liveSurface) Rows(ctx context.Context, rowSelector, keySelector, valueSelector string) ([]dom.Row, error) {
	expr := fmt.Sprintf(rowsJS, jsString(rowSelector), jsString(keySelector), jsString(valueSelector))
	var out []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := s.eval(ctx, expr, &out); err != nil {
		return nil, err
	}
	rows := make([]dom.Row, 0, len(out))
	for _, r := range out {
		rows = append(rows, dom.Row{Key: r.Key, Value: r.Value})
	}
	return rows, nil
}

var _ dom.Surface = (*liveSurface)(nil)
