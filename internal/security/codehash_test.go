package security

import (
	"testing"
)

func TestCodeHasher(t *testing.T) {
	h, err := NewCodeHasher("server-secret")
	if err != nil {
		t.Fatalf("NewCodeHasher failed: %v", err)
	}

	hash := h.Hash("123456")
	if len(hash) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(hash))
	}
	if hash != h.Hash("123456") {
		t.Error("hash should be deterministic")
	}

	tests := []struct {
		name   string
		code   string
		stored string
		want   bool
	}{
		{name: "matching code", code: "123456", stored: hash, want: true},
		{name: "wrong code", code: "654321", stored: hash, want: false},
		{name: "empty stored hash", code: "123456", stored: "", want: false},
		{name: "truncated hash", code: "123456", stored: hash[:32], want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Matches(tt.code, tt.stored); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeHasherKeyedBySecret(t *testing.T) {
	a, _ := NewCodeHasher("secret-a")
	b, _ := NewCodeHasher("secret-b")

	if a.Hash("123456") == b.Hash("123456") {
		t.Error("different secrets must produce different hashes")
	}
	if _, err := NewCodeHasher(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
