package core

import (
	"fmt"
	"strconv"
	"strings"
)

// OwnerContext is the caller-supplied identity shape handed to the
// broker. Resolution is total: every value, including nil, maps to an
// owner, falling back to the shared service owner.
type OwnerContext interface {
	ownerContext()
}

// ServiceCall marks an explicit machine-to-machine invocation.
type ServiceCall struct{}

// LocalUser identifies a caller by the gateway's own user id.
type LocalUser struct {
	ID string
}

// FederatedUser identifies a caller by an upstream directory id
// (oid/sub style claims).
type FederatedUser struct {
	ID string
}

// RawOwner carries a bare owner string; treated as a local identity.
type RawOwner struct {
	Value string
}

// RequestContext wraps the authenticated principal of an inbound
// request. Wrappers may nest; resolution recurses until it reaches a
// concrete identity.
type RequestContext struct {
	User OwnerContext
}

// Claims is a loose JWT-claims shape for callers that only hold decoded
// token payloads. Precedence mirrors the concrete variants: a local
// `_id` wins over federated `id`/`oid`/`sub`, and a nested `user` entry
// is unwrapped first.
type Claims map[string]any

func (ServiceCall) ownerContext()    {}
func (LocalUser) ownerContext()      {}
func (FederatedUser) ownerContext()  {}
func (RawOwner) ownerContext()       {}
func (RequestContext) ownerContext() {}
func (Claims) ownerContext()         {}

// ResolveOwner maps any owner context to a concrete OwnerRef. It never
// fails: unknown or empty shapes resolve to the service owner.
func ResolveOwner(owner OwnerContext) OwnerRef {
	switch typed := owner.(type) {
	case nil:
		return ServiceOwner()
	case OwnerRef:
		id := strings.TrimSpace(typed.ID)
		if id == "" {
			return ServiceOwner()
		}
		ownerType := typed.Type
		if strings.TrimSpace(string(ownerType)) == "" {
			ownerType = OwnerTypeLocal
		}
		return OwnerRef{ID: id, Type: ownerType}
	case ServiceCall:
		return ServiceOwner()
	case LocalUser:
		return ownerOrService(typed.ID, OwnerTypeLocal)
	case FederatedUser:
		return ownerOrService(typed.ID, OwnerTypeFederated)
	case RawOwner:
		return ownerOrService(typed.Value, OwnerTypeLocal)
	case RequestContext:
		return ResolveOwner(typed.User)
	case Claims:
		return resolveClaims(typed)
	default:
		return ServiceOwner()
	}
}

func resolveClaims(claims Claims) OwnerRef {
	if len(claims) == 0 {
		return ServiceOwner()
	}
	if nested, ok := claims["user"]; ok {
		if resolved, done := resolveNestedClaim(nested); done {
			return resolved
		}
	}
	if localID := claimString(claims["_id"]); localID != "" {
		return OwnerRef{ID: localID, Type: OwnerTypeLocal}
	}
	for _, key := range []string{"id", "oid", "sub"} {
		if federatedID := claimString(claims[key]); federatedID != "" {
			return OwnerRef{ID: federatedID, Type: OwnerTypeFederated}
		}
	}
	return ServiceOwner()
}

func resolveNestedClaim(nested any) (OwnerRef, bool) {
	switch typed := nested.(type) {
	case nil:
		return OwnerRef{}, false
	case OwnerContext:
		return ResolveOwner(typed), true
	case map[string]any:
		return resolveClaims(Claims(typed)), true
	case string:
		if strings.TrimSpace(typed) == "" {
			return OwnerRef{}, false
		}
		return OwnerRef{ID: strings.TrimSpace(typed), Type: OwnerTypeLocal}, true
	default:
		return OwnerRef{}, false
	}
}

// OwnerDisplayName extracts a human-facing identity for audit fields:
// claim name, then email, then the resolved owner id. Service callers
// yield an empty string so callers can apply their own default.
func OwnerDisplayName(owner OwnerContext) string {
	switch typed := owner.(type) {
	case RequestContext:
		return OwnerDisplayName(typed.User)
	case Claims:
		if nested, ok := typed["user"].(map[string]any); ok {
			if name := OwnerDisplayName(Claims(nested)); name != "" {
				return name
			}
		}
		for _, key := range []string{"name", "email"} {
			if value := claimString(typed[key]); value != "" {
				return value
			}
		}
	}
	resolved := ResolveOwner(owner)
	if resolved.IsService() {
		return ""
	}
	return resolved.ID
}

func ownerOrService(id string, ownerType OwnerType) OwnerRef {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return ServiceOwner()
	}
	return OwnerRef{ID: trimmed, Type: ownerType}
}

func claimString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		return ""
	}
}
