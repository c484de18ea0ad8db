// Package entities defines core domain models and data structures.
package entities

// Artifact represents a file produced or installed by a formula
type Artifact struct {
	Name     string
	Version  string
	Platform string
	Path     string
	Type     string // "source", "archive" or "binary"
}

// SourceCheckout is a working tree positioned at a formula's pinned revision
type SourceCheckout struct {
	Dir      string
	Tag      string
	Revision string
	Reused   bool
	Signer   string // fingerprint of the tag signer, empty when unsigned
}
