package remote

import "net/url"

// redact hides credentials carried in query parameters before a URL is logged
func redact(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return "<invalid url>"
	}

	q := u.Query()
	for _, key := range []string{"api_key", "key", "token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
