package security

import (
	"bytes"
	"testing"
)

func TestGenerateOpaqueToken(t *testing.T) {
	t.Parallel()

	token, hash, err := GenerateOpaqueToken(48)
	if err != nil {
		t.Fatalf("GenerateOpaqueToken returned error: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 base64url chars for 48 bytes, got %d", len(token))
	}
	if !bytes.Equal(hash, HashOpaqueToken(token)) {
		t.Fatal("expected returned hash to match HashOpaqueToken")
	}

	other, _, err := GenerateOpaqueToken(48)
	if err != nil {
		t.Fatalf("GenerateOpaqueToken returned error: %v", err)
	}
	if other == token {
		t.Fatal("expected distinct tokens")
	}
}

func TestSignResourceIsDeterministicAndKeyed(t *testing.T) {
	t.Parallel()

	first := SignResource("secret", "10.0.0.1", "curl/8.0")
	second := SignResource("secret", "10.0.0.1", "curl/8.0")
	if first != second {
		t.Fatal("expected identical input to produce identical digest")
	}
	if SignResource("other", "10.0.0.1", "curl/8.0") == first {
		t.Fatal("expected different secret to change digest")
	}
	if SignResource("secret", "10.0.0.2", "curl/8.0") == first {
		t.Fatal("expected different address to change digest")
	}
}
