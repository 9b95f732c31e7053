package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/repository/memory"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	userID := uuid.New()

	token, err := svc.Sign(userID)
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, err := svc.Sign(uuid.New())
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTService("other", time.Hour).Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTService("secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Parse("not-a-token")
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	jwtSvc := NewJWTService("secret", time.Hour)
	userID := uuid.New()
	token, err := jwtSvc.Sign(userID)
	require.NoError(t, err)

	var seen uuid.UUID
	handler := Middleware(jwtSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) }, http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusNoContent},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "nope"}) }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"authentication required","kind":"authentication"}`, rec.Body.String())
				assert.Equal(t, uuid.Nil, seen)
			} else {
				assert.Equal(t, userID, seen)
			}
		})
	}
}

func newAuthService() *Service {
	return NewService(memory.NewUserRepo(), NewJWTService("secret", time.Hour), bcrypt.MinCost,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestService_RegisterLoginMe(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	sess, err := svc.Register(ctx, Credentials{Email: " Ada@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.Equal(t, "ada", sess.User.Name)
	assert.NotEqual(t, "correct horse", sess.User.PasswordHash)

	_, err = svc.Register(ctx, Credentials{Email: "ada@example.com", Password: "another one"})
	assert.Equal(t, domain.KindDuplicate, domain.KindOf(err))

	login, err := svc.Login(ctx, Credentials{Email: "ADA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, Credentials{Email: "ada@example.com", Password: "wrong password"})
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))
	_, err = svc.Login(ctx, Credentials{Email: "nobody@example.com", Password: "correct horse"})
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))

	me, err := svc.Me(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	_, err = svc.Me(ctx, uuid.New())
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))
}

func TestService_RegisterValidation(t *testing.T) {
	svc := newAuthService()
	for _, c := range []Credentials{
		{Email: "", Password: "long enough"},
		{Email: "not-an-email", Password: "long enough"},
		{Email: "Ada <ada@example.com>", Password: "long enough"},
		{Email: "ada@example.com", Password: "short"},
	} {
		_, err := svc.Register(context.Background(), c)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), "credentials %+v", c)
	}
}
