package credentials

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveKey_Env(t *testing.T) {
	t.Setenv("IOTOPS_TEST_KEY", base64.StdEncoding.EncodeToString([]byte("from env")))

	key, err := ResolveKey("env:IOTOPS_TEST_KEY")
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	if string(key) != "from env" {
		t.Errorf("key = %q, want %q", key, "from env")
	}
}

func TestResolveKey_EnvMissing(t *testing.T) {
	_, err := ResolveKey("env:IOTOPS_TEST_KEY_DOES_NOT_EXIST")
	if !errors.Is(err, ErrEnvNotSet) {
		t.Errorf("ResolveKey() error = %v, want ErrEnvNotSet", err)
	}
}

func TestResolveKey_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.key")
	encoded := base64.StdEncoding.EncodeToString([]byte("from file")) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatal(err)
	}

	key, err := ResolveKey("file:" + path)
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	if string(key) != "from file" {
		t.Errorf("key = %q, want %q", key, "from file")
	}
}

func TestResolveKey_Inline(t *testing.T) {
	key, err := ResolveKey(base64.StdEncoding.EncodeToString([]byte("inline")))
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	if string(key) != "inline" {
		t.Errorf("key = %q, want %q", key, "inline")
	}
}
