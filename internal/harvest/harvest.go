// Package harvest finds email addresses in free text.
package harvest

import "regexp"

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Emails returns the distinct addresses found in text in the order they first
// appear. Matching is case-sensitive, so "a@b.com" and "A@B.com" are both kept.
// The result is never nil.
func Emails(text string) []string {
	found := []string{}
	if text == "" {
		return found
	}
	seen := make(map[string]struct{})
	for _, match := range emailPattern.FindAllString(text, -1) {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		found = append(found, match)
	}
	return found
}
