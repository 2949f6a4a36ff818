// Package ecp implements the HTTP command surface of an emulated media
// device. Every route sits behind an access guard that enforces a
// Host-header allow list and a private-network source rule.
package ecp
