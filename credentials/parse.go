package credentials

import (
	"fmt"
	"strings"
)

// Parse parses a credential connection string of the form:
//
//	host=<broker host>;device=<device id>;key=<key ref>[;name=<label>]
//
// The key segment accepts the same references as ResolveKey, so connection
// strings can point at the environment or a file instead of embedding the
// secret inline.
func Parse(s string) (Credential, error) {
	var cred Credential

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return Credential{}, fmt.Errorf("credentials: malformed segment %q", part)
		}

		switch strings.ToLower(k) {
		case "host":
			cred.Host = v
		case "device":
			cred.DeviceID = v
		case "key":
			key, err := ResolveKey(v)
			if err != nil {
				return Credential{}, err
			}
			cred.Key = key
		case "name":
			cred.Name = v
		default:
			return Credential{}, fmt.Errorf("credentials: unknown segment %q", k)
		}
	}

	if err := cred.Validate(); err != nil {
		return Credential{}, err
	}
	return cred, nil
}
