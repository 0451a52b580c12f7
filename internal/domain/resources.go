package domain

import (
	"path"
)

// Key is a flag-validation rule attached to a challenge.
type Key struct {
	ID      int    `json:"id"`
	Chal    int    `json:"chal"`
	Flag    string `json:"flag" validate:"required"`
	KeyType int    `json:"type"`
	// TypeName is the human readable key type as reported by the server.
	TypeName string `json:"type_name,omitempty"`
}

// KeyType is one entry of the server's key type registry.
type KeyType struct {
	ID   string
	Name string
}

// Tag is a saved challenge tag.
type Tag struct {
	ID  int    `json:"id"`
	Tag string `json:"tag"`
}

// Hint is a saved challenge hint.
type Hint struct {
	ID   int    `json:"id"`
	Hint string `json:"hint"`
}

// File is an attachment stored by the CTF server.
type File struct {
	ID   int    `json:"id"`
	File string `json:"file"`
}

// Name returns the last path element of the stored location.
func (f File) Name() string {
	return path.Base(f.File)
}

// DiscoveryEntry is a saved discovery rule: an encoded prerequisite set.
type DiscoveryEntry struct {
	ID        int    `json:"id"`
	Discovery string `json:"discovery"`
}

// KeyResult is the server's verdict for a submitted flag.
type KeyResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Correct reports whether the flag was accepted.
func (r KeyResult) Correct() bool {
	return r.Status == "1"
}
