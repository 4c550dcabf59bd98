package metrics

import (
	"strings"
	"unicode"
)

// friendlyAliases maps the error types a navigation usually fails with to a
// label, keyed without the pointer star.
var friendlyAliases = map[string]string{
	"httpclient.StatusError":        "HTTP error response",
	"url.Error":                     "Request URL error",
	"net.OpError":                   "Network error",
	"net.DNSError":                  "DNS lookup error",
	"context.deadlineExceededError": "Navigation timeout",
	"runtime.Error":                 "Panic",
}

// FriendlyErrorName returns a label for a Go error type name as printed by
// %T, e.g. "*url.Error" becomes "Request URL error" and
// "*chromedp.ErrInvalidWebsocketMessage" becomes
// "Err Invalid Websocket Message (chromedp)".
func FriendlyErrorName(typeName string) string {
	name := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if name == "" {
		return "Unknown error"
	}
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	if alias, ok := friendlyAliases[name]; ok {
		return alias
	}

	pkg, typ, found := strings.Cut(name, ".")
	if !found {
		pkg, typ = "", name
	}

	lower := strings.ToLower(typ)
	switch {
	case pkg == "context" && strings.Contains(lower, "deadline"):
		return "Navigation timeout"
	case pkg == "context" && strings.Contains(lower, "cancel"):
		return "Canceled"
	}

	pretty := strings.Join(splitCamel(typ), " ")
	if pkg == "" || pkg == "main" {
		return pretty
	}
	return pretty + " (" + pkg + ")"
}

// splitCamel splits an identifier at case and digit boundaries, keeping
// acronyms together: "HTTPStatusError" -> [HTTP Status Error].
func splitCamel(s string) []string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		boundary := unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower))
		if boundary || (unicode.IsDigit(cur) && !unicode.IsDigit(prev)) {
			words = append(words, titleWord(string(runes[start:i])))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, titleWord(string(runes[start:])))
	}
	return words
}

func titleWord(w string) string {
	if strings.ToUpper(w) == w {
		return w
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
