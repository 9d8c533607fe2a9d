package types

import "crypto/subtle"

// redactedPlaceholder is the string used to replace secret values in logs and serialization.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a credential (bot token, API key, webhook secret) and
// never prints or serializes its raw value. Use Unmask only where the raw
// value must leave the process, e.g. when building an outbound request.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// GoString keeps %#v from leaking the value.
func (s SecretString) GoString() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a non-empty secret was configured.
func (s SecretString) IsSet() bool {
	return s != ""
}

// Matches compares candidate against the secret in constant time.
func (s SecretString) Matches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(s), []byte(candidate)) == 1
}
