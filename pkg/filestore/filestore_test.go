package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"license.pdf", "license.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\docs\id card.png`, "id_card.png"},
		{"", "document"},
		{"..", "document"},
	}
	for _, tt := range tests {
		if got := cleanName(tt.in); got != tt.want {
			t.Errorf("cleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiskSaveDelete(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ref, err := d.Save(ctx, "p1", "driver", "license.pdf", strings.NewReader("scan"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "driver/p1/") || !strings.HasSuffix(ref, "_license.pdf") {
		t.Fatalf("unexpected ref %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(ref)))
	if err != nil || string(data) != "scan" {
		t.Fatalf("stored content = %q, %v", data, err)
	}

	if err := d.Delete(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete(ctx, ref); err != nil {
		t.Fatalf("deleting a missing file should be a no-op: %v", err)
	}
	if err := d.Delete(ctx, "../outside"); err == nil {
		t.Fatal("escaping reference accepted")
	}
}
