package log

import (
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"api_key":             true,
	"apikey":              true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
	"sid":                 true,
	"jsessionid":          true,
}

// sensitiveKeywords mask any key that contains them. The bare word "key"
// is not one of them: it would hide keys such as "primary_key".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitiveQueryParams are query parameters whose values are masked inside
// URLs.
var sensitiveQueryParams = map[string]bool{
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"id_token":      true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"sig":           true,
	"signature":     true,
	"session":       true,
	"sessionid":     true,
	"session_id":    true,
	"sid":           true,
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"auth":          true,
	"code":          true,
}

// sensitivePatterns mask a string value regardless of its key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	// AWS access key id
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// RedactURL masks the password of a URL's user info and the values of
// sensitive query parameters. It reports whether anything was masked.
// Strings that are not absolute URLs are returned unchanged.
func RedactURL(raw string) (string, bool) {
	if !strings.Contains(raw, "://") {
		return raw, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw, false
	}

	changed := false

	// url.Userinfo would percent-encode the mask, so it is spliced in after
	// formatting.
	userInfo := ""
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			userInfo = url.User(u.User.Username()).String() + ":" + MaskValue + "@"
			u.User = nil
			changed = true
		}
	}
	if query, ok := redactQuery(u.RawQuery); ok {
		u.RawQuery = query
		changed = true
	}

	if !changed {
		return raw, false
	}
	out := u.String()
	if userInfo != "" {
		out = strings.Replace(out, "://", "://"+userInfo, 1)
	}
	return out, true
}

// redactQuery masks sensitive parameter values in a raw query string,
// keeping the parameter order and encoding of everything else.
func redactQuery(rawQuery string) (string, bool) {
	if rawQuery == "" {
		return rawQuery, false
	}

	parts := strings.Split(rawQuery, "&")
	changed := false
	for i, part := range parts {
		name, _, hasValue := strings.Cut(part, "=")
		if !hasValue {
			continue
		}
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if sensitiveQueryParams[strings.ToLower(name)] {
			key, _, _ := strings.Cut(part, "=")
			parts[i] = key + "=" + MaskValue
			changed = true
		}
	}
	return strings.Join(parts, "&"), changed
}
