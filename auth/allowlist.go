package auth

import "strings"

// AdminEmails is the comma-separated list of authors allowed to write.
// It is fixed at build time:
//
//	go build -ldflags "-X quiettime/auth.AdminEmails=pastor@example.com,office@example.com"
//
// Changing who may write means rebuilding and redeploying.
var AdminEmails = ""

// AllowList is the set of author emails. Matching is exact.
type AllowList map[string]struct{}

func ParseAllowList(raw string) AllowList {
	list := AllowList{}
	for _, e := range strings.Split(raw, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		list[e] = struct{}{}
	}
	return list
}

// DefaultAllowList is the list compiled into the binary.
func DefaultAllowList() AllowList {
	return ParseAllowList(AdminEmails)
}

func (l AllowList) Contains(email string) bool {
	if email == "" {
		return false
	}
	_, ok := l[email]
	return ok
}

// IsAuthorized reports whether the identity may author entries: it must
// exist, carry an email, and that email must be on the list.
func IsAuthorized(id *Identity, list AllowList) bool {
	if id == nil {
		return false
	}
	return list.Contains(id.Email)
}
