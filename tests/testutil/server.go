package testutil

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/portal"
	"github.com/tendant/venue-admin/pkg/portal/api"
	"github.com/tendant/venue-admin/pkg/portal/config"
)

// JWTSecret signs tokens for servers started by SetupTestServer
const JWTSecret = "integration-test-secret"

// TestServer is a running portal with a token for one tenant
type TestServer struct {
	*httptest.Server
	Config     *config.ServerConfig
	Components *config.Components
	Token      string
	TenantID   string
}

// SetupTestServer wires the portal from opts (memory storage and repository
// unless overridden) and serves it with httptest. Everything is closed when
// the test ends.
func SetupTestServer(t *testing.T, tenantID string, opts ...config.Option) *TestServer {
	t.Helper()

	cfg, err := config.Load(append([]config.Option{
		config.WithJWTSecret(JWTSecret),
		config.WithEventLogging(false),
	}, opts...)...)
	require.NoError(t, err)

	components, err := cfg.Build(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(components.Service, components.RouterOptions(cfg)...))
	t.Cleanup(func() {
		srv.Close()
		components.Close()
	})

	token, err := api.IssueToken(components.Auth, portal.Session{UserID: "integration", TenantID: tenantID})
	require.NoError(t, err)

	return &TestServer{
		Server:     srv,
		Config:     cfg,
		Components: components,
		Token:      token,
		TenantID:   tenantID,
	}
}
