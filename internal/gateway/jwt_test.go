package gateway

import (
	"context"
	"testing"
	"time"
)

func TestJWTIntrospectorRoundTrip(t *testing.T) {
	j := NewJWTIntrospector("test-secret")
	tok, err := j.SignAccessToken("u1", "a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	u, err := j.Introspect(context.Background(), tok)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if u.ID != "u1" || u.Email != "a@b.com" {
		t.Errorf("user = %+v", u)
	}
}

func TestJWTIntrospectorRejectsExpired(t *testing.T) {
	j := NewJWTIntrospector("test-secret")
	tok, _ := j.SignAccessToken("u1", "a@b.com", -time.Hour)
	if _, err := j.Introspect(context.Background(), tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTIntrospectorRejectsWrongSecret(t *testing.T) {
	tok, _ := NewJWTIntrospector("other").SignAccessToken("u1", "a@b.com", time.Hour)
	if _, err := NewJWTIntrospector("test-secret").Introspect(context.Background(), tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}
