package utils

import "strings"

// NormalizeEmail trims surrounding space and lowercases the domain part only;
// the local part is case-sensitive per RFC 5321.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
