// Package imageio finds, decodes and encodes the panorama files.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // decoder registration
)

var (
	// ErrDecode wraps unreadable or corrupt source files.
	ErrDecode = errors.New("decode image")
	// ErrWrite wraps failures to create or encode an output file.
	ErrWrite = errors.New("write image")
	// ErrFormat is returned for output extensions with no encoder.
	ErrFormat = errors.New("unsupported output format")
)

// DefaultExtensions are matched when no extension list is configured.
var DefaultExtensions = []string{".png"}

// NormalizeExtensions lower-cases extensions, adds the leading dot and
// drops duplicates and blanks.
func NormalizeExtensions(exts []string) []string {
	norm := lo.FilterMap(exts, func(e string, _ int) (string, bool) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			return "", false
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		return e, true
	})
	return lo.Uniq(norm)
}

// Scan lists the regular files in dir whose extension matches exts
// (case-insensitive), sorted by name. Subdirectories are not searched.
func Scan(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	exts = NormalizeExtensions(exts)
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	paths := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if !e.Type().IsRegular() {
			return "", false
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		return filepath.Join(dir, e.Name()), lo.Contains(exts, ext)
	})
	sort.Strings(paths)
	return paths, nil
}

// Decode reads any registered format: png, jpeg, gif, webp, tiff, bmp.
// All but webp can also be written back.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}
	return img, nil
}

// FallbackFormat is used for sources whose own format cannot be written,
// such as webp.
const FallbackFormat = "png"

// OutputPath returns dir joined with the base name of src. A non-empty
// format ("png", "jpg", ...) replaces the extension. Without one the
// source extension is kept when it can be encoded, else FallbackFormat.
func OutputPath(dir, src, format string) string {
	name := filepath.Base(src)
	ext := filepath.Ext(name)
	if format == "" && !CanEncode(ext) {
		format = FallbackFormat
	}
	if format != "" {
		name = strings.TrimSuffix(name, ext) + "." + strings.TrimPrefix(strings.ToLower(format), ".")
	}
	return filepath.Join(dir, name)
}

// CanEncode reports whether Encode supports the extension or format name.
func CanEncode(ext string) bool {
	_, err := encoderFor("."+strings.TrimPrefix(ext, "."), 0)
	return err == nil
}

// Encode writes img to path in the format implied by its extension.
// The file is written to a temporary name and renamed into place, so a
// failed encode never leaves a truncated output behind.
func Encode(path string, img image.Image, jpegQuality int) error {
	enc, err := encoderFor(path, jpegQuality)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := enc(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

type encodeFunc func(io.Writer, image.Image) error

func encoderFor(path string, jpegQuality int) (encodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
		}, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".gif":
		return func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
