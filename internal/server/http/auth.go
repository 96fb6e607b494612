package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/perfcanvas/scriptstore/internal/common"
	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// Claims carried in the bearer token issued by the platform's auth tier.
// Role "A" (admin) and "S" (super user) unlock the /operation endpoints.
type Claims struct {
	UserID   string `json:"uid"`
	UserName string `json:"uname"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// authenticate resolves the request user from the Authorization header.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			writeError(w, common.ErrorUnauthorized)
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, common.ErrInvalidToken
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid || claims.UserID == "" {
			writeError(w, common.ErrInvalidToken)
			return
		}

		user := models.User{UserID: claims.UserID, UserName: claims.UserName}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

const roleKey contextKey = "role"

// adminOnly gates the administrative endpoints.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(roleKey).(string)
		if role != "A" && role != "S" {
			writeError(w, common.ErrorUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userFrom returns the authenticated user stored by the middleware.
func userFrom(r *http.Request) models.User {
	user, _ := r.Context().Value(userKey).(models.User)
	return user
}
