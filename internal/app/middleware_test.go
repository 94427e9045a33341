package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func identityProbe(t *testing.T) (http.Handler, *shared.Identity) {
	t.Helper()
	captured := &shared.Identity{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := shared.IdentityFromContext(r.Context()); ok {
			*captured = id
		}
		w.WriteHeader(http.StatusOK)
	})
	return IdentityMiddleware(nil)(next), captured
}

func TestIdentityMiddlewareResolvesHeaders(t *testing.T) {
	handler, captured := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/accounts", nil)
	req.Header.Set(HeaderOrgID, "7")
	req.Header.Set(HeaderUserID, "42")
	req.Header.Set(HeaderUserRole, " controller ")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(7), captured.OrgID)
	require.Equal(t, int64(42), captured.UserID)
	require.Equal(t, "controller", captured.Role)
}

func TestIdentityMiddlewareRejectsMissingOrInvalidHeaders(t *testing.T) {
	cases := map[string]map[string]string{
		"no headers":  {},
		"bad org":     {HeaderOrgID: "abc", HeaderUserID: "42"},
		"zero org":    {HeaderOrgID: "0", HeaderUserID: "42"},
		"no user":     {HeaderOrgID: "7"},
		"negative id": {HeaderOrgID: "7", HeaderUserID: "-1"},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			handler, _ := identityProbe(t)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ap", nil)
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestIdentityMiddlewareBypassesProbeEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/metrics"} {
		handler, _ := identityProbe(t)
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, path)
	}
}
