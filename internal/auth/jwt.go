package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the bearer token payload. Subject carries the user id.
type Claims struct {
	Role        Role   `json:"role"`
	FranchiseID string `json:"franchise_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for rc.
func IssueToken(secret string, rc RequestContext, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: rc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rc.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if rc.FranchiseID != nil {
		claims.FranchiseID = rc.FranchiseID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates an HMAC-signed token and returns its RequestContext.
func ParseToken(secret, tokenString string) (RequestContext, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return RequestContext{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return RequestContext{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return RequestContext{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	rc := RequestContext{UserID: userID, Role: claims.Role}
	if claims.FranchiseID != "" {
		fid, err := uuid.Parse(claims.FranchiseID)
		if err != nil {
			return RequestContext{}, fmt.Errorf("%w: franchise_id is not a uuid", ErrInvalidToken)
		}
		rc.FranchiseID = &fid
	}
	return rc, nil
}

// Middleware enforces a bearer token and stores the RequestContext on the
// request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeUnauthorized(w, "auth disabled")
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeUnauthorized(w, ErrMissingToken.Error())
				return
			}
			rc, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeUnauthorized(w, ErrInvalidToken.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
		})
	}
}

// errorResponse mirrors the api package's error body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Code: "unauthorized"})
}
