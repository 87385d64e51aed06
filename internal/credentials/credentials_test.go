package credentials

import (
	"errors"
	"os"
	"testing"
)

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{"deepgram": "dg-key"}

	key, err := r.APIKey("deepgram")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "dg-key" {
		t.Errorf("expected dg-key, got %s", key)
	}

	if _, err := r.APIKey("gemini"); !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("expected ErrCredentialMissing, got %v", err)
	}
}

func TestStaticResolver_EmptyValue(t *testing.T) {
	r := StaticResolver{"deepgram": ""}

	if _, err := r.APIKey("deepgram"); !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("expected ErrCredentialMissing for empty key, got %v", err)
	}
}

func TestKeyringResolver_EnvOverride(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "env-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	r := NewKeyringResolver()
	key, err := r.APIKey("deepgram")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "env-key" {
		t.Errorf("expected env-key, got %s", key)
	}
}

func TestKeyringResolver_EnvOverrideNotCached(t *testing.T) {
	os.Setenv("GEMINI_API_KEY", "first")
	defer os.Unsetenv("GEMINI_API_KEY")

	r := NewKeyringResolver()
	if key, _ := r.APIKey("gemini"); key != "first" {
		t.Fatalf("expected first, got %s", key)
	}

	// A rotated key is picked up on the next resolve.
	os.Setenv("GEMINI_API_KEY", "second")
	if key, _ := r.APIKey("gemini"); key != "second" {
		t.Errorf("expected second, got %s", key)
	}
}
