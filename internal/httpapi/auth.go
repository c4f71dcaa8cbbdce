package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/eminaliyev/gift-api/internal/domain/auth"
)

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// Auth returns a middleware authenticating requests via HMAC-SHA256 hashed
// API keys from the api_key header. The resolved identity (customer id and
// billing profile) is stored in the request context.
func Auth(keys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("api_key")
			if rawKey == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(rawKey))
			hash := mac.Sum(nil)

			key, err := keys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time re-check of the stored hash against what we
			// computed, in case the repository returned a stale row.
			stored, err := hex.DecodeString(key.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				zctx.From(r.Context()).Warn("api key hash mismatch",
					zap.String("key_id", key.ID))
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, key.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
