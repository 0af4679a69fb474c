package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"betai/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeUsers map[string]bool

func (f fakeUsers) UserByID(_ context.Context, id string) (*models.User, error) {
	if !f[id] {
		return nil, errors.New("not found")
	}
	return &models.User{ID: id}, nil
}

func TestAuthIssueValidate(t *testing.T) {
	svc := NewService(testSecret, time.Hour, fakeUsers{"u1": true})
	token, err := svc.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	userID, err := svc.ValidateToken(context.Background(), token)
	if err != nil || userID != "u1" {
		t.Fatalf("ValidateToken failed: id=%s err=%v", userID, err)
	}
}

func TestAuthValidateExpiredToken(t *testing.T) {
	svc := NewService(testSecret, time.Hour, fakeUsers{"u2": true})
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.IssueToken("u2")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	svc.now = time.Now
	if _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	svc := NewService(testSecret, time.Hour, fakeUsers{"u3": true})
	other := NewService("another-secret-another-secret-xx", time.Hour, nil)

	forged, err := other.IssueToken("u3")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	unknown, err := svc.IssueToken("ghost")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u3"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	for name, token := range map[string]string{
		"empty":        "",
		"malformed":    "not-a-jwt",
		"wrong secret": forged,
		"unknown user": unknown,
		"alg none":     noneToken,
	} {
		if _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected unauthenticated, got %v", name, err)
		}
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(testSecret, time.Hour, fakeUsers{"u4": true})
	token, err := svc.IssueToken("u4")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	router := gin.New()
	router.GET("/required", svc.Middleware(), func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		c.String(http.StatusOK, id)
	})
	router.GET("/optional", svc.OptionalMiddleware(), func(c *gin.Context) {
		id, ok := UserIDFromContext(c)
		if !ok {
			id = "anonymous"
		}
		c.String(http.StatusOK, id)
	})

	cases := []struct {
		path   string
		header string
		status int
		body   string
	}{
		{"/required", "Bearer " + token, http.StatusOK, "u4"},
		{"/required", "bearer " + token, http.StatusOK, "u4"},
		{"/required", "", http.StatusUnauthorized, `{"error":"unauthenticated"}`},
		{"/required", "Bearer garbage", http.StatusUnauthorized, `{"error":"unauthenticated"}`},
		{"/optional", "", http.StatusOK, "anonymous"},
		{"/optional", "Bearer garbage", http.StatusOK, "anonymous"},
		{"/optional", "Bearer " + token, http.StatusOK, "u4"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.status || rec.Body.String() != tc.body {
			t.Fatalf("%s %q: got %d %s", tc.path, tc.header, rec.Code, rec.Body.String())
		}
	}
}
