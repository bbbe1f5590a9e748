package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key-for-unit-tests"
	testIssuer = "storefront-checkout-test"
)

func TestGenerateAndParse(t *testing.T) {
	tok, err := Generate(testSecret, "u1", "tienda-1", "staff", testIssuer, 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "tienda-1", claims.TenantID)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := Generate(testSecret, "u1", "tienda-1", "owner", testIssuer, -1)
	require.NoError(t, err)

	_, err = Parse(testSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := Generate(testSecret, "u1", "tienda-1", "owner", testIssuer, 60)
	require.NoError(t, err)

	_, err = Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err)
}

func TestParse_SinTenant(t *testing.T) {
	tok, err := Generate(testSecret, "u1", "", "owner", testIssuer, 60)
	require.NoError(t, err)

	_, err = Parse(testSecret, tok)
	assert.ErrorContains(t, err, "tenant_id")
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "u1", "t", "owner", testIssuer, 60)
	assert.Error(t, err)
	_, err = Parse("", "x")
	assert.Error(t, err)
}
