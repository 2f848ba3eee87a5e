package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Disk stores files under a root directory as
// <root>/<role>/<owner>/<uuid>_<name>.
type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &Disk{root: abs}, nil
}

func (d *Disk) Save(ctx context.Context, ownerID, role, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := filepath.Join(cleanName(role), cleanName(ownerID), uuid.NewString()+"_"+cleanName(filename))
	full := filepath.Join(d.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (d *Disk) Delete(_ context.Context, ref string) error {
	full := filepath.Join(d.root, filepath.FromSlash(ref))
	if !strings.HasPrefix(full, d.root+string(filepath.Separator)) {
		return fmt.Errorf("reference %q escapes the document root", ref)
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
