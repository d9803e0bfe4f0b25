package admin

import "strings"

// Allowlist authorizes admin users by email. An empty list denies everyone.
type Allowlist struct {
	emails map[string]struct{}
}

func NewAllowlist(emails []string) *Allowlist {
	a := &Allowlist{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalize(e); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

func (a *Allowlist) IsAuthorized(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.emails[normalize(email)]
	return ok
}

func (a *Allowlist) Len() int { return len(a.emails) }

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
