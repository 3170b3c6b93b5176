package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/travelhub/internal/handler"
	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, raw string) (model.Identity, error) {
	switch raw {
	case "admin":
		return model.Identity{SubjectID: "a1", Role: model.RoleAdmin}, nil
	case "client":
		return model.Identity{SubjectID: "c1", Role: model.RoleClient}, nil
	}
	return model.Identity{}, model.ErrInvalidToken
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

// newTestDeps wires handlers without services; tests only exercise paths
// that middleware answers before a handler runs.
func newTestDeps() Deps {
	return Deps{
		Log:      logger.Nop(),
		Verifier: stubVerifier{},
		DB:       okPinger{},
		Auth:     handler.NewAuthHandler(nil),
		Products: handler.NewProductHandler(nil),
		Packages: handler.NewPackageHandler(nil),
		Carts:    handler.NewCartHandler(nil),
	}
}

func TestRouteTable(t *testing.T) {
	e := New(newTestDeps())
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/auth/register",
		"POST /api/auth/login",
		"GET /api/auth/me",
		"GET /api/products",
		"GET /api/products/:id",
		"POST /api/products",
		"PUT /api/products/:id",
		"DELETE /api/products/:id",
		"GET /api/flights",
		"GET /api/hotels/:id",
		"POST /api/transport",
		"POST /api/excursions",
		"GET /api/packages",
		"POST /api/packages",
		"PUT /api/packages/:id",
		"DELETE /api/packages/:id",
		"GET /api/cart",
		"DELETE /api/cart",
		"POST /api/cart/items",
		"PUT /api/cart/items/:id",
		"DELETE /api/cart/items/:id",
		"GET /api/dashboard/stats",
		"GET /healthz",
	} {
		assert.True(t, have[want], "missing route %s", want)
	}
}

func TestRouteGuards(t *testing.T) {
	e := New(newTestDeps())
	cases := []struct {
		method, path, token string
		status              int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/products", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/cart", "forged", http.StatusUnauthorized},
		{http.MethodPost, "/api/products", "client", http.StatusForbidden},
		{http.MethodPost, "/api/flights", "client", http.StatusForbidden},
		{http.MethodDelete, "/api/packages/k1", "client", http.StatusForbidden},
		{http.MethodGet, "/api/dashboard/stats", "client", http.StatusForbidden},
		{http.MethodGet, "/api/nowhere", "admin", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}
