package logger

import (
	"log/slog"
	"strings"
)

const redacted = "[redacted]"

// secretKeys are lower-case fragments of attribute keys whose values are
// never logged: passwords, accessJwt/refreshJwt, Authorization headers and
// "handle:password" credential strings.
var secretKeys = []string{"password", "jwt", "token", "secret", "credential", "auth"}

// redactSensitive replaces secrets in a, descending into groups.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = redactSensitive(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		v := a.Value.String()
		switch {
		case v == "":
		case secretKey(a.Key):
			return slog.String(a.Key, redacted)
		case looksLikeToken(v):
			return slog.String(a.Key, abbreviate(v))
		}
	}
	return a
}

func secretKey(key string) bool {
	key = strings.ToLower(key)
	for _, frag := range secretKeys {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

// looksLikeToken matches compact JWTs (three dot-separated segments with a
// base64url JSON header) and bearer header values.
func looksLikeToken(v string) bool {
	if strings.HasPrefix(v, "eyJ") && strings.Count(v, ".") == 2 {
		return true
	}
	return len(v) > 7 && strings.EqualFold(v[:7], "bearer ")
}

// abbreviate keeps just enough of a token to tell two apart in a log.
func abbreviate(v string) string {
	if len(v) <= 12 {
		return redacted
	}
	return v[:3] + "…" + v[len(v)-3:]
}
