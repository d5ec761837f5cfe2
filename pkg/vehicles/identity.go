package vehicles

import (
	"fmt"
	"strings"
)

// IdentityKind records which feed field an identity was derived from.
type IdentityKind string

// Identity kinds in priority order.
const (
	IdentityVIN       IdentityKind = "vin"
	IdentityStock     IdentityKind = "stock"
	IdentitySynthetic IdentityKind = "synthetic"
)

// String returns the string representation of the kind.
func (k IdentityKind) String() string {
	return string(k)
}

// Identity is the key used to correlate a vehicle across ingestion batches
// and enhancement lookups.
type Identity struct {
	Key  string       `json:"key" yaml:"key"`
	Kind IdentityKind `json:"kind" yaml:"kind"`
}

// String returns the identity key.
func (id Identity) String() string {
	return id.Key
}

// IsZero reports whether the identity carries no key.
func (id Identity) IsZero() bool {
	return id.Key == ""
}

// Stable reports whether the identity survives re-ingestion.
// Synthetic identities are batch-local and never linked to enhancements.
func (id Identity) Stable() bool {
	return id.Key != "" && id.Kind != IdentitySynthetic
}

// NormalizeVIN uppercases and trims a VIN.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// VINIdentity builds an identity from a raw VIN.
func VINIdentity(vin string) Identity {
	return Identity{Key: NormalizeVIN(vin), Kind: IdentityVIN}
}

// StockIdentity builds an identity from a raw stock number.
func StockIdentity(stock string) Identity {
	return Identity{Key: strings.TrimSpace(stock), Kind: IdentityStock}
}

// SyntheticIdentity builds the unstable "{batchTimestamp}-{rowIndex}" identity.
func SyntheticIdentity(batchTimestamp int64, rowIndex int) Identity {
	return Identity{Key: fmt.Sprintf("%d-%d", batchTimestamp, rowIndex), Kind: IdentitySynthetic}
}

// ParseIdentity guesses the kind of a bare key supplied by a caller,
// e.g. from a URL path. Keys shaped like "{digits}-{digits}" are synthetic,
// 10 to 17 alphanumerics are treated as VINs and uppercased, anything else
// as stock numbers.
func ParseIdentity(key string) Identity {
	key = strings.TrimSpace(key)
	switch {
	case isSyntheticKey(key):
		return Identity{Key: key, Kind: IdentitySynthetic}
	case looksLikeVIN(key):
		return VINIdentity(key)
	default:
		return Identity{Key: key, Kind: IdentityStock}
	}
}

// Normalize returns the identity in its canonical form for its kind.
func (id Identity) Normalize() Identity {
	switch id.Kind {
	case IdentityVIN:
		return VINIdentity(id.Key)
	case "":
		return ParseIdentity(id.Key)
	default:
		id.Key = strings.TrimSpace(id.Key)
		return id
	}
}

// LookupKeys returns the keys a caller-supplied id may be held under: the
// parsed key first, then the trimmed raw key when a stock number was
// mistaken for a VIN.
func LookupKeys(id string) []string {
	raw := strings.TrimSpace(id)
	key := ParseIdentity(raw).Key
	if key == raw {
		return []string{key}
	}
	return []string{key, raw}
}

func isSyntheticKey(key string) bool {
	left, right, ok := strings.Cut(key, "-")
	return ok && isDigits(left) && isDigits(right)
}

func looksLikeVIN(key string) bool {
	if len(key) < 10 || len(key) > 17 {
		return false
	}
	for _, r := range key {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
