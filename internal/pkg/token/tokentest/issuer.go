// Package tokentest emite JWTs aceites por token.Service, para usar em testes.
// Em produção a emissão pertence ao serviço de autenticação externo.
package tokentest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lojasocial/internal/pkg/token"
)

// Sign devolve um token HS256 para o utilizador, válido durante ttl.
// Um ttl negativo produz um token já expirado.
func Sign(t testing.TB, secret, userID, role string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := token.CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    token.Issuer,
			Subject:   userID,
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("falha ao assinar o token de teste: %v", err)
	}
	return raw
}
