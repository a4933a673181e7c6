package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var errWrongTokenType = errors.New("wrong token type")

// TokenService signs HS256 session tokens. Every token carries a jti so a
// signed-out session can be revoked before it expires.
type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Type  string `json:"typ"`
	Email string `json:"email,omitempty"`
}

func (t TokenService) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

func (t TokenService) CreateAccessToken(userID, email string) (string, int64, error) {
	exp := t.now().Add(t.AccessTTL)
	signed, err := t.sign(userID, email, tokenAccess, exp)
	return signed, exp.Unix(), err
}

func (t TokenService) CreateRefreshToken(userID string) (string, error) {
	return t.sign(userID, "", tokenRefresh, t.now().Add(t.RefreshTTL))
}

func (t TokenService) sign(userID, email, typ string, exp time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.Issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(t.now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Type:  typ,
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

// parse validates signature, issuer, expiry and the typ claim.
func (t TokenService) parse(tokenStr, typ string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	},
		jwt.WithIssuer(t.Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != typ {
		return nil, errWrongTokenType
	}
	return claims, nil
}
