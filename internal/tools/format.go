package tools

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// String returns the argument as text. Numbers are rendered without a
// trailing ".0" so ids passed as numbers still work as strings.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}

// Int returns the argument as an integer, or 0 when absent or not numeric.
func (a Args) Int(key string) int64 {
	n, _ := toInt(a[key])
	return n
}

// toInt accepts JSON numbers and numeric strings.
func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// pyFloat renders a float the way customers have always seen prices:
// whole numbers keep one decimal, e.g. 400.0.
func pyFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// groupInt inserts thousands separators: 56000 -> 56,000.
func groupInt(n int64) string {
	var b strings.Builder
	if n < 0 {
		b.WriteByte('-')
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}

// groupFloat groups the integer part and keeps the fraction: 18000 -> 18,000.0.
func groupFloat(v float64) string {
	s := pyFloat(v)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	whole, err := strconv.ParseInt(s[:dot], 10, 64)
	if err != nil {
		return s
	}
	return groupInt(whole) + s[dot:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
