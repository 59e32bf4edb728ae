package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	tm := NewTokenMaker("secret-secret-secret-secret-secret")

	var seen Principal
	h := RequireRole(tm, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	sign := func(subject, role string) string {
		tok, err := tm.New(subject, role, time.Minute)
		require.NoError(t, err)
		return "Bearer " + tok
	}

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic Zm9vOmJhcg==", want: http.StatusUnauthorized},
		{name: "empty subject", header: sign("", "admin"), want: http.StatusUnauthorized},
		{name: "wrong role", header: sign("ops", "viewer"), want: http.StatusForbidden},
		{name: "admin", header: sign("ops", "admin"), want: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}

	assert.Equal(t, Principal{Subject: "ops", Role: "admin"}, seen)
}

func TestRequireStaticToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	testCases := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{name: "match", token: "t0k", header: "Bearer t0k", want: http.StatusOK},
		{name: "mismatch", token: "t0k", header: "Bearer nope", want: http.StatusForbidden},
		{name: "no bearer prefix", token: "t0k", header: "t0k", want: http.StatusForbidden},
		{name: "locked when unset", token: "", header: "Bearer ", want: http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			r.Header.Set("Authorization", tc.header)
			w := httptest.NewRecorder()
			RequireStaticToken(tc.token)(ok).ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
