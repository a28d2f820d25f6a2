package buffer

import "strings"

// defaultPIIKeys is the built-in deny-list of parameter keys that must never
// be stored or transmitted before consent is finalized. Matching is
// case-insensitive.
var defaultPIIKeys = []string{
	"email",
	"phone",
	"user_id",
	"customer_id",
}

// Scrubber removes PII-bearing keys from event parameters.
type Scrubber struct {
	denied map[string]struct{}
}

// NewScrubber builds a scrubber from the built-in deny-list plus any extra
// keys from configuration.
func NewScrubber(extraKeys ...string) *Scrubber {
	denied := make(map[string]struct{}, len(defaultPIIKeys)+len(extraKeys))
	for _, key := range defaultPIIKeys {
		denied[strings.ToLower(key)] = struct{}{}
	}
	for _, key := range extraKeys {
		if key != "" {
			denied[strings.ToLower(key)] = struct{}{}
		}
	}
	return &Scrubber{denied: denied}
}

// Scrub returns a copy of params without denied keys and reports whether
// anything was removed. The input map is never mutated; callers may hold
// references to it.
func (s *Scrubber) Scrub(params map[string]any) (map[string]any, bool) {
	if len(params) == 0 {
		return map[string]any{}, false
	}
	clean := make(map[string]any, len(params))
	removed := false
	for key, value := range params {
		if _, deny := s.denied[strings.ToLower(key)]; deny {
			removed = true
			continue
		}
		clean[key] = value
	}
	return clean, removed
}
