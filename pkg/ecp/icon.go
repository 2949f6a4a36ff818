package ecp

import "encoding/base64"

// placeholderIcon is a 1x1 PNG served for every icon query. Real icon
// art is irrelevant to clients under test; they only check fetchability.
var placeholderIcon = mustDecodeBase64(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func mustDecodeBase64(s string) []byte {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic("invalid embedded icon: " + err.Error())
	}
	return data
}
