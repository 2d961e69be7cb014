package privacy

import (
	"crypto/sha256"
	"encoding/hex"
)

// DefaultPIISalt is the salt prepended to sensitive attribute values before
// hashing when the encoder's config leaves PIISalt unset.
const DefaultPIISalt = "evomem_sie_v1"

// hashSensitive returns a copy of the attribute bag with the named fields'
// values replaced by hex-encoded salted SHA-256 digests. Field names absent
// from the bag are ignored. The raw value of a hashed field never reaches the
// embedding provider.
func hashSensitive(attributes map[string]string, fields []string, salt string) map[string]string {
	if len(fields) == 0 {
		return attributes
	}

	hashed := make(map[string]string, len(attributes))
	for k, v := range attributes {
		hashed[k] = v
	}
	for _, field := range fields {
		if value, ok := hashed[field]; ok {
			sum := sha256.Sum256([]byte(salt + ":" + value))
			hashed[field] = hex.EncodeToString(sum[:])
		}
	}
	return hashed
}
