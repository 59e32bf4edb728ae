package kit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "object", body: `{"stock": 3}`},
		{name: "trailing whitespace", body: "{\"stock\": 3}\n\n"},
		{name: "two values", body: `{"stock": 3}{"stock": 4}`, wantErr: true},
		{name: "truncated", body: `{"stock": `, wantErr: true},
		{name: "too large", body: `{"pad":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			var v map[string]any
			err := DecodeJSON(w, r, &v)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, json.Number("3"), v["stock"])
		})
	}
}

func TestWriteError(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteError(w, r, http.StatusConflict, "code already in use", map[string]any{"code": "abc"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"code already in use","details":{"code":"abc"}}`, w.Body.String())
}
