package models

import "strings"

// ReferencePrefix marks a content string as a reference token for an image
// that has not been uploaded yet. "@@" can never start a URL or a path, so a
// token is never mistaken for a real image location.
const ReferencePrefix = "@@asset:"

// IsReferenceToken reports whether s is a pending image reference.
func IsReferenceToken(s string) bool {
	return strings.HasPrefix(s, ReferencePrefix) && len(s) > len(ReferencePrefix)
}

// BinaryHandle is an opaque binary blob produced by the capture flow
// (file picker or clipboard paste).
type BinaryHandle struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"type"`
	// Data is never serialized with the document.
	Data []byte `json:"-"`
}

// PendingAsset pairs a reference token with the binary it stands in for.
type PendingAsset struct {
	ReferenceToken string
	Handle         BinaryHandle
}
