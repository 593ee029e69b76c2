package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/pkg/errors"
)

// HTTPIdentityClient implements domain.IdentityService against the external
// identity service. Role storage and user management live there, not here.
type HTTPIdentityClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPIdentityClient creates a new HTTPIdentityClient
func NewHTTPIdentityClient(baseURL string) *HTTPIdentityClient {
	return &HTTPIdentityClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type rolesResponse struct {
	Roles []string `json:"roles"`
}

// HasRole checks whether the actor holds the given role
func (c *HTTPIdentityClient) HasRole(ctx context.Context, actorID string, role domain.Role) (bool, error) {
	url := fmt.Sprintf("%s/users/%s/roles", c.baseURL, actorID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to build identity request")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "failed to call identity service")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.StatusCode != http.StatusOK {
		return false, errors.Errorf("identity service returned status %d", res.StatusCode)
	}

	var body rolesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, errors.Wrap(err, "failed to decode identity response")
	}

	for _, r := range body.Roles {
		if domain.Role(r) == role {
			return true, nil
		}
	}

	return false, nil
}
