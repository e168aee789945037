// Copyright © 2024 The ELPS authors

package compile

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// JobName derives the engine job name for a document URI.  The name is the
// sanitized base name of the URI path followed by a short hash of the whole
// URI, so distinct documents with the same base name do not collide.
func JobName(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil {
		switch {
		case u.Path != "":
			p = u.Path
		case u.Opaque != "":
			p = u.Opaque
		}
	}
	base := path.Base(filepath.ToSlash(p))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || strings.Trim(base, "_") == "" {
		base = "document"
	}
	sum := sha256.Sum256([]byte(uri))
	return base + "-" + hex.EncodeToString(sum[:4])
}

// moveFile renames src to dst, copying when the two are on different
// devices.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	in, err := os.Open(src) //nolint:gosec // artifact produced by the engine
	if err != nil {
		return err
	}
	defer in.Close()           //nolint:errcheck // read-only
	out, err := os.Create(dst) //nolint:gosec // configured output directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck,gosec // already failing
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
