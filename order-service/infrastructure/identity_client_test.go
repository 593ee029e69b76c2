package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPIdentityClient_HasRole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/shop-1/roles":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"roles": ["shop"]}`))
		case "/users/nobody/roles":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewHTTPIdentityClient(server.URL)

	t.Run("actor holds role", func(t *testing.T) {
		ok, err := client.HasRole(context.Background(), "shop-1", domain.RoleShop)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("actor lacks role", func(t *testing.T) {
		ok, err := client.HasRole(context.Background(), "shop-1", domain.RoleDeliverer)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown actor", func(t *testing.T) {
		ok, err := client.HasRole(context.Background(), "nobody", domain.RoleShop)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("upstream failure", func(t *testing.T) {
		_, err := client.HasRole(context.Background(), "broken", domain.RoleShop)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "identity service returned status 500")
	})
}
