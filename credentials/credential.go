package credentials

import (
	"bytes"
	"sync"
)

// Credential identifies a device to a broker host.
type Credential struct {
	// Name distinguishes the credential within a failover set, for example
	// "primary" or "secondary". Optional.
	Name string

	// Host is the broker hostname.
	Host string

	// DeviceID is the device identity registered with the broker.
	DeviceID string

	// Key is the shared secret used to sign access tokens. Never logged.
	Key []byte
}

// Validate checks that the credential is usable.
func (c Credential) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if len(c.Key) == 0 {
		return ErrMissingKey
	}
	return nil
}

// String returns a loggable description. The key is never included.
func (c Credential) String() string {
	id := c.DeviceID + "@" + c.Host
	if c.Name != "" {
		return c.Name + " " + id
	}
	return id
}

func (c Credential) equal(o Credential) bool {
	return c.Name == o.Name &&
		c.Host == o.Host &&
		c.DeviceID == o.DeviceID &&
		bytes.Equal(c.Key, o.Key)
}

// Set is an ordered collection of failover credentials, consumed from the
// front. Safe for concurrent use.
type Set struct {
	mu    sync.Mutex
	creds []Credential
}

// NewSet creates a set from creds in priority order. Every credential must
// validate; an empty set is permitted and simply has no active candidate.
func NewSet(creds ...Credential) (*Set, error) {
	for _, c := range creds {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	s := &Set{creds: make([]Credential, len(creds))}
	copy(s.creds, creds)
	return s, nil
}

// Active returns the current candidate. ok is false when the set is
// exhausted.
func (s *Set) Active() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.creds) == 0 {
		return Credential{}, false
	}
	return s.creds[0], true
}

// Discard removes cred from the front of the set, making the next candidate
// active. It only removes when cred still is the active candidate, so a
// duplicate or stale rejection report cannot discard a successor.
func (s *Set) Discard(cred Credential) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.creds) == 0 || !s.creds[0].equal(cred) {
		return false
	}
	s.creds = s.creds[1:]
	return true
}

// Remaining returns the number of candidates left.
func (s *Set) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creds)
}

// Names returns the loggable descriptions of the remaining candidates in
// order.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.creds))
	for i, c := range s.creds {
		names[i] = c.String()
	}
	return names
}
