package cmis

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known principals
const (
	PrincipalAnyone    = "anyone"
	PrincipalAnonymous = "anonymous"
)

// Permission is a basic CMIS permission. Permissions are totally ordered:
// a higher permission implies all lower ones.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionRead
	PermissionWrite
	PermissionAll
)

func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "cmis:read"
	case PermissionWrite:
		return "cmis:write"
	case PermissionAll:
		return "cmis:all"
	default:
		return "cmis:none"
	}
}

// Implies reports whether p grants at least other.
func (p Permission) Implies(other Permission) bool {
	return p >= other
}

// ParsePermission parses the text form of a permission. The "cmis:"
// prefix is optional.
func ParsePermission(s string) (Permission, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "cmis:") {
	case "none":
		return PermissionNone, nil
	case "read":
		return PermissionRead, nil
	case "write":
		return PermissionWrite, nil
	case "all":
		return PermissionAll, nil
	}
	return PermissionNone, Errorf(KindInvalidArgument, "unknown permission %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Permission) UnmarshalText(b []byte) error {
	parsed, err := ParsePermission(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Ace is an access control entry.
type Ace struct {
	Principal  string     `json:"principalId" yaml:"principalId"`
	Permission Permission `json:"permission" yaml:"permission"`
	Direct     bool       `json:"isDirect" yaml:"-"`
}

// Acl is a set of ACEs with at most one entry per principal, kept sorted
// by principal. The zero value is the empty ACL.
type Acl struct {
	Aces []Ace `json:"aces"`
}

// NewAcl builds an ACL from aces. Duplicate principals collapse to the
// larger permission.
func NewAcl(aces ...Ace) Acl {
	var acl Acl
	for _, ace := range aces {
		acl = acl.with(ace)
	}
	return acl
}

func (a Acl) index(principal string) (int, bool) {
	i := sort.Search(len(a.Aces), func(i int) bool { return a.Aces[i].Principal >= principal })
	return i, i < len(a.Aces) && a.Aces[i].Principal == principal
}

func (a Acl) with(ace Ace) Acl {
	i, found := a.index(ace.Principal)
	out := make([]Ace, 0, len(a.Aces)+1)
	out = append(out, a.Aces[:i]...)
	switch {
	case found && a.Aces[i].Permission >= ace.Permission:
		out = append(out, a.Aces[i])
		out = append(out, a.Aces[i+1:]...)
	case found:
		out = append(out, Ace{Principal: ace.Principal, Permission: ace.Permission, Direct: true})
		out = append(out, a.Aces[i+1:]...)
	default:
		out = append(out, Ace{Principal: ace.Principal, Permission: ace.Permission, Direct: true})
		out = append(out, a.Aces[i:]...)
	}
	return Acl{Aces: out}
}

// Len returns the number of entries.
func (a Acl) Len() int {
	return len(a.Aces)
}

// Permission returns the permission granted to principal by its own entry.
func (a Acl) Permission(principal string) (Permission, bool) {
	i, found := a.index(principal)
	if !found {
		return PermissionNone, false
	}
	return a.Aces[i].Permission, true
}

// Grants reports whether the ACL grants perm to principal, either through
// the principal's own entry or through the anyone entry.
func (a Acl) Grants(principal string, perm Permission) bool {
	if p, ok := a.Permission(principal); ok && p.Implies(perm) {
		return true
	}
	if p, ok := a.Permission(PrincipalAnyone); ok && p.Implies(perm) {
		return true
	}
	return false
}

// Merge adds the entries of add. An existing entry for the same principal
// is raised to the added permission and never lowered.
func (a Acl) Merge(add Acl) Acl {
	out := a
	for _, ace := range add.Aces {
		out = out.with(ace)
	}
	return out
}

// Remove deletes the rows of every principal listed in remove, whatever
// permission they hold. Principals without a row are ignored.
func (a Acl) Remove(remove Acl) Acl {
	if len(remove.Aces) == 0 {
		return a
	}
	drop := make(map[string]struct{}, len(remove.Aces))
	for _, ace := range remove.Aces {
		drop[ace.Principal] = struct{}{}
	}
	out := make([]Ace, 0, len(a.Aces))
	for _, ace := range a.Aces {
		if _, ok := drop[ace.Principal]; !ok {
			out = append(out, ace)
		}
	}
	return Acl{Aces: out}
}

// Equal reports whether a and b hold the same principals at the same
// permissions.
func (a Acl) Equal(b Acl) bool {
	if len(a.Aces) != len(b.Aces) {
		return false
	}
	for i := range a.Aces {
		if a.Aces[i].Principal != b.Aces[i].Principal || a.Aces[i].Permission != b.Aces[i].Permission {
			return false
		}
	}
	return true
}

// Key returns a canonical text form used to deduplicate equal ACLs.
func (a Acl) Key() string {
	var sb strings.Builder
	for i, ace := range a.Aces {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%q=%d", ace.Principal, ace.Permission)
	}
	return sb.String()
}

// Clone returns a copy of a that does not share its entries.
func (a Acl) Clone() Acl {
	return Acl{Aces: append([]Ace(nil), a.Aces...)}
}

// AclPropagation controls how an ACL change applies to descendants.
type AclPropagation string

const (
	AclPropagationObjectOnly           AclPropagation = "objectonly"
	AclPropagationPropagate            AclPropagation = "propagate"
	AclPropagationRepositoryDetermined AclPropagation = "repositorydetermined"
)

// AclResult reports the outcome of an ACL change. SkippedIDs lists the
// descendants left unchanged by a propagating change because the acting
// principal lacks cmis:all on them.
type AclResult struct {
	Acl        Acl      `json:"acl"`
	SkippedIDs []string `json:"skippedIds,omitempty"`
}
