package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/haseebafeef/mock-verse/internal/exam"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewAuthService("test-secret")

	tok, err := svc.IssueJWT("u1", "admin")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Sub != "u1" || claims.Role != "admin" || claims.Issuer != "mockverse" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := NewAuthService("secret-a").IssueJWT("u1", "user")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuthService("secret-b").Parse(tok); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestParseRejectsAlgNone(t *testing.T) {
	// Unsigned token with the right claim shape.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "u1", Role: "admin"})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuthService("test-secret").Parse(tok); err == nil {
		t.Fatal("alg=none token was accepted")
	}
}

func TestJWTMiddleware(t *testing.T) {
	svc := NewAuthService("test-secret")
	tok, err := svc.IssueJWT("u1", "user")
	if err != nil {
		t.Fatal(err)
	}

	var seen exam.Principal
	h := JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid bearer", "Bearer " + tok, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = exam.Principal{}
			req := httptest.NewRequest("GET", "/exams", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.status == http.StatusOK && seen.ID != "u1" {
				t.Errorf("principal = %+v", seen)
			}
		})
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), exam.Principal{ID: "u1", Role: exam.RoleAdmin})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID != "u1" || p.Role != exam.RoleAdmin {
		t.Errorf("principal = %+v, ok = %v", p, ok)
	}
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Error("empty context yielded a principal")
	}
}

func TestBearerSchemeIsStrict(t *testing.T) {
	svc := NewAuthService("test-secret")
	tok, err := svc.IssueJWT("u1", "user")
	if err != nil {
		t.Fatal(err)
	}
	h := JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", strings.ToLower("Bearer ")+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("lowercase scheme: status = %d, want 401", rec.Code)
	}
}
