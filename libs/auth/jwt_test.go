package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	signer, err := NewSigner("test-secret-0123456789", "salonbook", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	token, err := signer.Issue("user-1", "ana@salon.test", "client")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "ana@salon.test" || claims.Role != "client" {
		t.Fatalf("claims mismatch: got %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := NewSigner("secret-a-0123456789", "", time.Hour)
	b, _ := NewSigner("secret-b-0123456789", "", time.Hour)

	token, err := a.Issue("user-1", "", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := b.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	signer, _ := NewSigner("test-secret-0123456789", "", time.Minute)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := signer.Issue("user-1", "", "staff")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	signer.now = time.Now
	if _, err := signer.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	signer, _ := NewSigner("test-secret-0123456789", "", time.Hour)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none failed: %v", err)
	}
	if _, err := signer.Verify(unsigned); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewSignerRejectsShortSecret(t *testing.T) {
	if _, err := NewSigner("short", "", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
