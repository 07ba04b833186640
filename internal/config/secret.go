package config

import "encoding/json"

// Secret wraps an opaque credential (a catalog API key) so that it never
// appears in logs or JSON dumps by accident. The real value is reachable
// only through Reveal.
type Secret string

const redacted = "***redacted***"

// String implements fmt.Stringer, used by %v/%s and logging.F.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// MarshalJSON redacts the secret on any JSON encode (config dumps, API
// responses); Reveal is the only way to get the real value back out.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal(redacted)
}

// UnmarshalJSON accepts the real value from config files; a previously
// redacted value round-tripped back in is treated as "unchanged" by callers
// that check it with IsRedactedPlaceholder.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Secret(v)
	return nil
}

// Reveal returns the underlying value. Callers that need the real API key
// (the catalog client) must call this explicitly; nothing else should.
func (s Secret) Reveal() string {
	return string(s)
}

// IsRedactedPlaceholder reports whether v is the sentinel written back by a
// prior display/marshal rather than a real value.
func IsRedactedPlaceholder(v string) bool {
	return v == redacted
}
