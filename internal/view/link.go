package view

import "strings"

// NormalizeLink returns the actionable form of a stored link: values
// without an http:// or https:// prefix get https:// prepended. The stored
// value is never modified. An empty link stays empty.
func NormalizeLink(link string) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return "https://" + link
}
