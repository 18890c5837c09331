package util

import (
	"net/mail"
	"strings"
)

// NormalizeEmail extracts the address from user input such as
// "Name <User@Example.COM>" and lowercases its domain. The local part,
// including any +alias, is kept so replies reach the exact mailbox.
// ok is false when no single address can be parsed.
func NormalizeEmail(raw string) (email string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr == nil {
		return "", false
	}

	email = strings.TrimSpace(addr.Address)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:]), true
}

// Collapse trims s and folds runs of whitespace into single spaces.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
