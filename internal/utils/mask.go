package utils

import "net/url"

// MaskSecret keeps the first four characters of a credential for log correlation.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}

// MaskURL masks secret-bearing query parameters (pushkey, apikey) and any
// userinfo password in a URL before it is logged.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}

	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "*****")
		}
	}

	q := u.Query()
	for _, key := range []string{"pushkey", "apikey", "api_key"} {
		if v := q.Get(key); v != "" {
			q.Set(key, MaskSecret(v))
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
