package helpers

import (
	"net/url"
	"strings"
)

// AbsoluteURL resolves href against baseURL. Absolute hrefs are
// returned as-is, root-relative hrefs are joined to the site origin.
func AbsoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		u, err := url.Parse(baseURL)
		if err != nil {
			return baseURL + href
		}
		return u.Scheme + "://" + u.Host + href
	}
	return strings.TrimRight(baseURL, "/") + "/" + href
}

// Domain extracts the hostname of a URL, used as the politeness key.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
