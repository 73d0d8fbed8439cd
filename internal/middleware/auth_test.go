package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		w.Write([]byte(uid))
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	a := NewAuthenticator("test-secret", "paes", time.Hour)
	tok, err := a.IssueToken("user-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.Middleware(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestMiddleware_Rejects(t *testing.T) {
	a := NewAuthenticator("test-secret", "paes", time.Hour)
	other := NewAuthenticator("other-secret", "paes", time.Hour)
	foreign, err := other.IssueToken("user-42")
	require.NoError(t, err)

	expired := NewAuthenticator("test-secret", "paes", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.IssueToken("user-42")
	require.NoError(t, err)

	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + foreign,
		"expired":      "Bearer " + stale,
		"garbage":      "Bearer not-a-token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			a.Middleware(echoUser()).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestParse_MissingSubject(t *testing.T) {
	a := NewAuthenticator("test-secret", "paes", time.Hour)
	tok, err := a.IssueToken("")
	require.NoError(t, err)

	_, err = a.Parse(tok)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
}
