// Package filestore keeps uploaded verification documents. References it
// returns are opaque to callers and are passed back verbatim to Delete.
package filestore

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

type Store interface {
	Save(ctx context.Context, ownerID, role, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// cleanName keeps the base name of an upload and strips anything that
// could escape a directory or confuse a shell.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
