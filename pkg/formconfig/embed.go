package formconfig

import (
	"embed"
	"io/fs"
)

//go:embed library/*
var embeddedLibrary embed.FS

// EmbeddedFS returns the bundled library example (authors owning books).
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedLibrary, "library")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}
