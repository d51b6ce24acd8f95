package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/model"
)

const (
	ContextPrincipalKey = "principal"

	// AuthenticatedUser is recorded when a bearer credential is present but
	// could not be mapped to a username.
	AuthenticatedUser = "authenticated"
)

var ErrNoPrincipal = errors.New("no principal on request")

// TokenVerifier maps a bearer token to the principal it was issued for.
type TokenVerifier interface {
	Verify(token string) (*model.Principal, error)
}

// IdentityResolver names the acting user of a request for the request log.
// It never rejects a request; see AuthMiddleware for enforcement.
type IdentityResolver struct {
	verifier TokenVerifier
}

func NewIdentityResolver(verifier TokenVerifier) *IdentityResolver {
	return &IdentityResolver{verifier: verifier}
}

// Resolve tries, in order: a principal already attached to the context, the
// subject of a verifiable bearer token, and the AuthenticatedUser marker for
// any other bearer credential. Without a credential it returns ErrNoPrincipal.
// A verified principal is attached to the context so the token is checked
// once per request.
func (r *IdentityResolver) Resolve(c *gin.Context) (p model.Principal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = model.Principal{}, fmt.Errorf("%w: %v", ErrNoPrincipal, rec)
		}
	}()

	if existing, ok := PrincipalFrom(c); ok {
		return *existing, nil
	}
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return model.Principal{}, ErrNoPrincipal
	}
	if r != nil && r.verifier != nil {
		if verified, err := r.verifier.Verify(token); err == nil && verified != nil && verified.Username != "" {
			// AuthMiddleware picks this up instead of verifying again
			c.Set(ContextPrincipalKey, verified)
			return *verified, nil
		}
	}
	return model.Principal{Username: AuthenticatedUser}, nil
}

// PrincipalFrom returns the principal set by AuthMiddleware, if any.
func PrincipalFrom(c *gin.Context) (*model.Principal, bool) {
	val, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil, false
	}
	p, ok := val.(*model.Principal)
	if !ok || p == nil || p.Username == "" {
		return nil, false
	}
	return p, true
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
