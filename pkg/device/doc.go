// Package device ties one emulated media-player device together: its
// derived identity, its configuration, and the lifecycle owner that
// runs the HTTP command surface and the discovery responder as
// siblings.
package device
