package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
)

// sessionClaims is the token payload issued by the identity service.
// Subject carries the user ID, Role is "patient" or "provider".
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates an HMAC-signed bearer token and places the acting
// patient or provider on the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Fail closed: a missing secret must never open the API.
			if secret == "" {
				http.Error(w, "authentication not configured", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := sessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid subject", http.StatusUnauthorized)
				return
			}
			var role actor.Role
			switch claims.Role {
			case string(actor.RolePatient):
				role = actor.RolePatient
			case string(actor.RoleProvider):
				role = actor.RoleProvider
			default:
				http.Error(w, "unknown role", http.StatusUnauthorized)
				return
			}

			ctx := actor.WithActor(r.Context(), actor.Actor{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
