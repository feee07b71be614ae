package ldap

import (
	"github.com/google/uuid"
)

// decodeGUID converts a binary objectGUID to its canonical hyphenated form.
// Active Directory stores the first three groups little-endian and the
// last two big-endian.
func decodeGUID(raw []byte) (string, bool) {
	if len(raw) != 16 {
		return "", false
	}

	b := make([]byte, 16)
	b[0], b[1], b[2], b[3] = raw[3], raw[2], raw[1], raw[0]
	b[4], b[5] = raw[5], raw[4]
	b[6], b[7] = raw[7], raw[6]
	copy(b[8:], raw[8:])

	id, err := uuid.FromBytes(b)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
