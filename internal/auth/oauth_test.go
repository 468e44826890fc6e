package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderName(t *testing.T) {
	name, err := ProviderName(httptest.NewRequest("GET", "/api/auth/google?provider=google", nil))
	require.NoError(t, err)
	assert.Equal(t, "google", name)

	_, err = ProviderName(httptest.NewRequest("GET", "/api/auth/", nil))
	assert.Error(t, err)
}

func TestProviders(t *testing.T) {
	assert.Empty(t, Providers(OAuthConfig{BaseURL: "http://localhost:8080"}))

	providers := Providers(OAuthConfig{
		BaseURL:            "http://localhost:8080",
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
	})
	require.Len(t, providers, 1)
	assert.Equal(t, "google", providers[0].Name())
}

func TestSetupRequiresSessionSecret(t *testing.T) {
	_, err := Setup(OAuthConfig{})
	assert.Error(t, err)

	n, err := Setup(OAuthConfig{SessionSecret: "s3cret", BaseURL: "http://localhost:8080"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
