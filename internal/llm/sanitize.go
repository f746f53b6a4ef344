package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
)

var (
	reAmount      = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?|-?\.\d+`)
	reISOCurrency = regexp.MustCompile(`^[A-Z]{3}$`)
)

// SanitizeFields normalizes a decoded model object for the layout:
//   - money fields become two-decimal strings ("₹1,234.50" -> "1234.50"); unparsable money is dropped
//   - scalar text fields are stringified and trimmed, null is dropped
//   - lists of scalars in text fields are joined with "; "
//   - currency is upper-cased, category is mapped onto the closed set
//   - keys outside the layout are removed
//
// It returns the re-encoded document and what was dropped.
func SanitizeFields(m map[string]any, l layout.Layout, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[string]layout.Field, len(l.Fields))
	for _, f := range l.Fields {
		allowed[f.Key] = f
	}

	dropped := make([]string, 0, 4)
	for k := range maps.Clone(m) {
		f, ok := allowed[k]
		if !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if f.Money {
			d, ok := ParseMoney(m[k])
			if !ok {
				delete(m, k)
				dropped = append(dropped, k+"(money)")
				continue
			}
			m[k] = d.StringFixed(2)
			continue
		}
		switch t := m[k].(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			m[k] = strings.TrimSpace(t)
		case json.Number:
			m[k] = t.String()
		case float64:
			m[k] = decimal.NewFromFloat(t).String()
		case bool:
			m[k] = fmt.Sprintf("%t", t)
		case []any:
			if s, ok := joinScalars(t); ok {
				m[k] = s
			}
			// anything else is left for the schema check to reject
		}
	}

	if v, ok := m["currency"].(string); ok {
		m["currency"] = strings.ToUpper(v)
	}
	if v, ok := m["category"].(string); ok {
		cat, known := constants.Canonicalize(v)
		if !known && v != "" {
			dropped = append(dropped, "category("+v+"->"+string(cat)+")")
		}
		m["category"] = string(cat)
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.fields.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// ParseMoney reads a model-supplied amount. Numbers pass through; strings may carry
// currency symbols, codes and thousands separators.
func ParseMoney(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return decimal.Decimal{}, false
		}
		match := reAmount.FindString(s)
		if match == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

func joinScalars(list []any) (string, bool) {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				parts = append(parts, s)
			}
		case json.Number:
			parts = append(parts, t.String())
		case float64, bool:
			parts = append(parts, fmt.Sprint(t))
		case nil:
		default:
			return "", false
		}
	}
	return strings.Join(parts, "; "), true
}

// CoerceFields fixes the shape problems SanitizeFields leaves for the schema to reject.
// Objects and non-scalar lists in text fields become compact JSON text, and a currency
// that is not a three-letter code is removed so the configured default applies.
// It returns the keys it changed.
func CoerceFields(m map[string]any, l layout.Layout) []string {
	var changed []string
	for _, f := range l.Fields {
		v, ok := m[f.Key]
		if !ok || f.Money {
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			m[f.Key] = compactJSON(t)
			changed = append(changed, f.Key+"(object)")
		case []any:
			if _, ok := joinScalars(t); !ok {
				m[f.Key] = joinItems(t)
				changed = append(changed, f.Key+"(list)")
			}
		}
	}
	switch v := m["currency"].(type) {
	case nil:
	case string:
		if !reISOCurrency.MatchString(strings.ToUpper(strings.TrimSpace(v))) {
			delete(m, "currency")
			changed = append(changed, "currency("+v+")")
		}
	default:
		delete(m, "currency")
		changed = append(changed, "currency(non-text)")
	}
	return changed
}

func joinItems(list []any) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case nil:
		case string:
			if s := strings.TrimSpace(t); s != "" {
				parts = append(parts, s)
			}
		case json.Number:
			parts = append(parts, t.String())
		case float64, bool:
			parts = append(parts, fmt.Sprint(t))
		default:
			parts = append(parts, compactJSON(t))
		}
	}
	return strings.Join(parts, "; ")
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
