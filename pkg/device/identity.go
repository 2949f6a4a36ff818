package device

import "github.com/google/uuid"

// identityNamespace is a fixed namespace so identifiers derived from
// the same serial are stable across restarts and processes.
var identityNamespace = uuid.MustParse("7f3c9a2d-5b1e-4e8a-9c6f-0d2b8a714e55")

// DeriveDeviceID derives the device identifier used as the UPnP UDN
// from the device serial. Deterministic: equal serials always yield
// equal identifiers.
func DeriveDeviceID(usn string) string {
	return uuid.NewSHA1(identityNamespace, []byte(usn)).String()
}
