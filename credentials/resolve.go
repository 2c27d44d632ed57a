package credentials

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// ResolveKey resolves key material from a reference string.
//
// Supported forms:
//   - env:VAR    base64 key in the environment variable VAR
//   - file:PATH  base64 key in the file at PATH
//   - anything else is treated as inline base64
//
// A missing environment variable is an error, never an empty key.
func ResolveKey(ref string) ([]byte, error) {
	encoded := ref

	switch {
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		v, ok := os.LookupEnv(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEnvNotSet, name)
		}
		encoded = v

	case strings.HasPrefix(ref, "file:"):
		path := strings.TrimPrefix(ref, "file:")
		b, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration.
		if err != nil {
			return nil, fmt.Errorf("credentials: read key file: %w", err)
		}
		encoded = string(b)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("credentials: decode key: %w", err)
	}
	return key, nil
}
