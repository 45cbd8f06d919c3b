package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"risk-analytics/internal/common/errors"
	commonhttp "risk-analytics/internal/common/http"
)

func newIntrospectionServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/risk/protocol/openid-connect/token/introspect", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "analytics-api", r.PostForm.Get("client_id"))
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestValidateToken(t *testing.T) {
	t.Run("active token", func(t *testing.T) {
		srv := newIntrospectionServer(t, http.StatusOK, map[string]interface{}{
			"active": true, "sub": "user-42", "username": "analyst",
		})
		defer srv.Close()

		kc := NewKeycloakClient(srv.URL+"/", "risk", "analytics-api", "secret", commonhttp.NewClientFrom(srv.Client()))
		info, err := kc.ValidateToken(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "user-42", info.UserID())
	})

	t.Run("inactive token", func(t *testing.T) {
		srv := newIntrospectionServer(t, http.StatusOK, map[string]interface{}{"active": false})
		defer srv.Close()

		kc := NewKeycloakClient(srv.URL, "risk", "analytics-api", "secret", commonhttp.NewClientFrom(srv.Client()))
		_, err := kc.ValidateToken(context.Background(), "tok")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeUnauthenticated, errors.AsStandardError(err).Code)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		srv := newIntrospectionServer(t, http.StatusServiceUnavailable, map[string]interface{}{})
		defer srv.Close()

		kc := NewKeycloakClient(srv.URL, "risk", "analytics-api", "secret", commonhttp.NewClientFrom(srv.Client()))
		_, err := kc.ValidateToken(context.Background(), "tok")
		stdErr := errors.AsStandardError(err)
		assert.Equal(t, errors.ErrCodeAuthProviderFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
	})

	t.Run("empty token", func(t *testing.T) {
		kc := NewKeycloakClient("http://unused", "risk", "analytics-api", "secret", commonhttp.NewClient(0))
		_, err := kc.ValidateToken(context.Background(), "")
		assert.Equal(t, errors.ErrCodeUnauthenticated, errors.AsStandardError(err).Code)
	})
}

func TestTokenInfoUserIDFallsBackToUsername(t *testing.T) {
	assert.Equal(t, "analyst", (&TokenInfo{Username: "analyst"}).UserID())
}
