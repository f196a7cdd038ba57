// Package format holds the small presentation helpers used by the templates.
package format

import (
	"strings"
	"time"
)

// EnsureScheme prepends https:// to a URL missing its protocol. GitHub
// returns blog URLs exactly as the user typed them, so "example.com" is
// common. Empty input stays empty.
func EnsureScheme(url string) string {
	if url == "" {
		return url
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}

// JoinDate renders an account-creation time as "Joined 14 Apr 2014".
func JoinDate(t time.Time) string {
	return "Joined " + t.Format("2 Jan 2006")
}
