package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/soo/honeyboard/internal/model"
)

// tokenIssuerName はJWTのiss/audクレームに設定する識別子。
const tokenIssuerName = "honeyboard"

// TokenIssuer はローカルアカウントIDを主体とする署名付きセッショントークンを発行・検証する。
// トークンはステートレスで、サーバー側には永続化しない。
type TokenIssuer struct {
	secret []byte
	maxAge time.Duration
}

// NewTokenIssuer はTokenIssuerを生成する。
// 署名鍵が空の場合は設定エラーを返す。推測可能なデフォルト値への
// フォールバックは行わない。
func NewTokenIssuer(secret string, maxAge time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, model.NewConfigError("SESSION_SECRET")
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		maxAge: maxAge,
	}, nil
}

// sessionClaims はセッショントークンのクレーム。
type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Issue は指定ユーザーを主体とするHS256署名付きトークンを発行する。
func (i *TokenIssuer) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tokenIssuerName,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、主体（ユーザーID）を返す。
// 署名不正・期限切れ・HMAC以外の署名方式はすべてエラー。
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid session token claims")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("missing subject in session token")
	}

	return claims.Subject, nil
}
