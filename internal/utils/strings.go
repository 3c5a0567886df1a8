// Package utils provides small helpers shared across the session gateway.
package utils

import "strings"

// MaskToken masks a credential for safe logging (shows first 6 and last 4
// chars). Backend access tokens, provider tokens, and signed session tokens
// must never be logged in plain text.
func MaskToken(token string) string {
	if token == "" {
		return "(empty)"
	}
	if len(token) < 14 {
		return "****"
	}
	return token[:6] + "..." + token[len(token)-4:]
}

// MaskIdentifier masks a login identifier, keeping the domain of an email
// address visible so logs stay useful without exposing the full address.
func MaskIdentifier(id string) string {
	if id == "" {
		return "(empty)"
	}
	at := strings.IndexByte(id, '@')
	if at <= 1 {
		return "****"
	}
	return id[:1] + "***" + id[at:]
}
