package httpx

import (
	"context"
	"net/http"
	"strings"

	"readingjourney/internal/platform/crypto"
)

// BlacklistRepository reports revoked access tokens.
type BlacklistRepository interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AccountStatus is what the auth middleware needs to know about a token's subject.
type AccountStatus struct {
	Exists   bool
	Verified bool
	Active   bool
}

// AccountLookup resolves the account state for a user id.
type AccountLookup interface {
	AccountStatus(ctx context.Context, userID string) (AccountStatus, error)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// AuthMiddleware requires a valid, unrevoked access token belonging to a
// verified, active account.
func AuthMiddleware(secret string, blacklist BlacklistRepository, accounts AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				Unauthorized(w, r, "Could not validate credentials")
				return
			}

			claims, err := crypto.ParseToken(secret, token, crypto.TokenAccess)
			if err != nil {
				Unauthorized(w, r, "Could not validate credentials")
				return
			}

			if blacklist != nil && claims.ID != "" {
				revoked, err := blacklist.IsBlacklisted(r.Context(), claims.ID)
				if err != nil {
					InternalError(w, r)
					return
				}
				if revoked {
					Unauthorized(w, r, "Token has been revoked")
					return
				}
			}

			if accounts != nil {
				status, err := accounts.AccountStatus(r.Context(), claims.Sub)
				if err != nil {
					InternalError(w, r)
					return
				}
				switch {
				case !status.Exists:
					NotFound(w, r, "User not found")
					return
				case !status.Verified:
					Forbidden(w, r, "Email not verified")
					return
				case !status.Active:
					Forbidden(w, r, "Account deactivated")
					return
				}
			}

			info := TokenInfo{JTI: claims.ID}
			if claims.ExpiresAt != nil {
				info.ExpiresAt = claims.ExpiresAt.Time
			}
			recordUser(r.Context(), claims.Sub)
			ctx := ContextWithUser(r.Context(), claims.Sub, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
