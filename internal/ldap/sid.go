package ldap

import (
	"github.com/bwmarrin/go-objectsid"
)

// decodeSID converts a binary objectSid to S-1-5-21-... form. The second
// result is false when raw is not a well-formed SID, which is the case for
// directories that already return objectSid as text.
func decodeSID(raw []byte) (string, bool) {
	// Revision byte, sub-authority count, 6-byte authority, then 4 bytes
	// per sub-authority.
	if len(raw) < 8 || raw[0] != 1 || len(raw) != 8+4*int(raw[1]) {
		return "", false
	}
	return objectsid.Decode(raw).String(), true
}
