package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct {
	accountID string
	err       error
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.accountID, nil
}

func echoAccountID(w http.ResponseWriter, r *http.Request) {
	id, _ := r.Context().Value(AccountIDKey).(string)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(id))
}

func TestSessionAuthValidCookie(t *testing.T) {
	handler := SessionAuth(&fakeVerifier{accountID: "alice@test"})(http.HandlerFunc(echoAccountID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "tok-123"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@test", rec.Body.String())
}

func TestSessionAuthMissingCookie(t *testing.T) {
	handler := SessionAuth(&fakeVerifier{accountID: "alice@test"})(http.HandlerFunc(echoAccountID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthInvalidToken(t *testing.T) {
	handler := SessionAuth(&fakeVerifier{err: errors.New("expired")})(http.HandlerFunc(echoAccountID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "stale"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthNilVerifierPassesThrough(t *testing.T) {
	handler := SessionAuth(nil)(http.HandlerFunc(echoAccountID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
