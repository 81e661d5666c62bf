package iam

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MaxAccessKeys is the per-holder credential ceiling. Disabled keys still
// count against it; rotation does not free a slot.
const MaxAccessKeys = 2

var accessKeyPattern = regexp.MustCompile(`^AKIA[0-9A-Z]{12}$`)

// ValidAccessKeyFormat reports whether key matches the required
// AKIA + 12 uppercase-alphanumeric pattern.
func ValidAccessKeyFormat(key string) bool {
	return accessKeyPattern.MatchString(key)
}

// AccessKey is a single long-lived credential owned by a user. The secret is
// generated once at creation and only its bcrypt hash is retained.
type AccessKey struct {
	Key        string
	SecretHash string
	Active     bool
	CreatedAt  time.Time
	ExpireAt   *time.Time
}

// Disable deactivates the key. There is no re-enable; rotation is the only
// way forward for a disabled credential.
func (k *AccessKey) Disable() {
	k.Active = false
}

// SetExpiration sets the key's expiry instant.
func (k *AccessKey) SetExpiration(expireAt time.Time) {
	t := expireAt
	k.ExpireAt = &t
}

// ValidAt reports whether the key is usable at the given instant: active and
// either without expiry or expiring strictly after now.
func (k *AccessKey) ValidAt(now time.Time) bool {
	if !k.Active {
		return false
	}
	if k.ExpireAt != nil && !k.ExpireAt.After(now) {
		return false
	}
	return true
}

// KeyStatus is the outward-facing view of one access key. It never carries
// the secret hash.
type KeyStatus struct {
	Key       string     `json:"key"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpireAt  *time.Time `json:"expire_at,omitempty"`
}

// KeySet manages one holder's ordered set of access keys and enforces the
// credential lifecycle rules. The zero value is an empty, usable set.
type KeySet struct {
	keys []AccessKey
}

func (s *KeySet) find(key string) *AccessKey {
	for i := range s.keys {
		if s.keys[i].Key == key {
			return &s.keys[i]
		}
	}
	return nil
}

// Add creates a new active key and returns the generated plaintext secret.
// The secret is not retained; this is the caller's only chance to capture it.
func (s *KeySet) Add(key string, now time.Time) (string, error) {
	if len(s.keys) >= MaxAccessKeys {
		return "", ErrAccessKeyLimitReached
	}
	if !ValidAccessKeyFormat(key) {
		return "", ErrInvalidAccessKeyFormat
	}

	secret, err := generateAccessKeySecret()
	if err != nil {
		return "", fmt.Errorf("generate access key secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash access key secret: %w", err)
	}

	s.keys = append(s.keys, AccessKey{
		Key:        key,
		SecretHash: string(hash),
		Active:     true,
		CreatedAt:  now,
	})
	return secret, nil
}

// Remove deletes the key by value. Absence is a silent no-op.
func (s *KeySet) Remove(key string) {
	for i := range s.keys {
		if s.keys[i].Key == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return
		}
	}
}

// Disable deactivates the key. Absence is a silent no-op; callers cannot
// distinguish "not found" from "already disabled".
func (s *KeySet) Disable(key string) {
	if k := s.find(key); k != nil {
		k.Disable()
	}
}

// SetExpiration sets the expiry on the key. Absence is a silent no-op.
func (s *KeySet) SetExpiration(key string, expireAt time.Time) {
	if k := s.find(key); k != nil {
		k.SetExpiration(expireAt)
	}
}

// Rotate disables oldKey and adds newKey as two distinct steps. The limit is
// checked after the disable: a holder already at the ceiling cannot rotate,
// because disabling does not free a slot.
func (s *KeySet) Rotate(oldKey, newKey string, now time.Time) (string, error) {
	s.Disable(oldKey)
	return s.Add(newKey, now)
}

// ValidAt reports whether the named key is valid at the given instant.
// An absent key is simply invalid, not an error.
func (s *KeySet) ValidAt(key string, now time.Time) bool {
	k := s.find(key)
	if k == nil {
		return false
	}
	return k.ValidAt(now)
}

// VerifySecret compares a presented plaintext secret against the stored hash
// for the named key. Absent key or mismatched secret both report false.
func (s *KeySet) VerifySecret(key, secret string) bool {
	k := s.find(key)
	if k == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(k.SecretHash), []byte(secret)) == nil
}

// Status returns a snapshot of all keys in insertion order.
func (s *KeySet) Status() []KeyStatus {
	out := make([]KeyStatus, 0, len(s.keys))
	for _, k := range s.keys {
		st := KeyStatus{Key: k.Key, Active: k.Active, CreatedAt: k.CreatedAt}
		if k.ExpireAt != nil {
			t := *k.ExpireAt
			st.ExpireAt = &t
		}
		out = append(out, st)
	}
	return out
}

// Snapshot returns a full copy of the keys, including secret hashes, for
// persistence.
func (s *KeySet) Snapshot() []AccessKey {
	out := make([]AccessKey, len(s.keys))
	copy(out, s.keys)
	for i := range out {
		if out[i].ExpireAt != nil {
			t := *out[i].ExpireAt
			out[i].ExpireAt = &t
		}
	}
	return out
}

// Restore replaces the set with stored keys. Key format is always
// re-validated at load because this constructor path is the only validation
// point; stored flags, hashes, and timestamps are taken as-is.
func (s *KeySet) Restore(keys []AccessKey) error {
	restored := make([]AccessKey, 0, len(keys))
	for _, k := range keys {
		if !ValidAccessKeyFormat(k.Key) {
			return fmt.Errorf("restore access key %q: %w", k.Key, ErrInvalidAccessKeyFormat)
		}
		if k.ExpireAt != nil {
			t := *k.ExpireAt
			k.ExpireAt = &t
		}
		restored = append(restored, k)
	}
	s.keys = restored
	return nil
}

// generateAccessKeySecret returns a cryptographically random secret
// (32 bytes, hex encoded).
func generateAccessKeySecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
