package tenant

import "strings"

// PersonalPrefix marks personal tenant ids. A group id starting with this
// prefix is classified as personal when no stored kind is available.
const PersonalPrefix = "user_"

// TeamID derives the canonical team tenant id from an email domain.
// The mapping is deterministic: lower-case, dots become underscores.
func TeamID(emailDomain string) string {
	return strings.ReplaceAll(strings.ToLower(emailDomain), ".", "_")
}

// PersonalID derives the canonical personal tenant id from a full email
// address. Every character outside [A-Za-z0-9_] becomes an underscore and the
// result is prefixed with "user_".
func PersonalID(email string) string {
	return PersonalPrefix + Sanitize(email)
}

// Sanitize lower-cases s and replaces every character outside [A-Za-z0-9_]
// with an underscore. Idempotent on already-sanitized input.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsPersonalID reports whether id has the personal tenant shape. This is a
// naming convention, not a stored discriminator; stored groups carry an
// explicit Kind and should be classified through it.
func IsPersonalID(id string) bool {
	return strings.HasPrefix(id, PersonalPrefix)
}

// Domain extracts the domain part of an email address, lower-cased. Returns
// "" when the address has no "@".
func Domain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// LocalPart extracts the part of an email address before the "@".
func LocalPart(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at]
}
