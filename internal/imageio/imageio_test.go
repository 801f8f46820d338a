package imageio

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(60 * y), B: 90, A: 255})
		}
	}
	return img
}

func TestScan_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.PNG", "c.jpg", "notes.txt", "d.png"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Scan(dir, []string{"png"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.PNG"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "d.png"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}

	got, err = Scan(dir, []string{".png", ".JPG"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("png+jpg: got %d files, want 4", len(got))
	}
}

func TestScan_DefaultsToPNG(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	touch(t, filepath.Join(dir, "b.jpg"))
	got, err := Scan(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "a.png" {
		t.Errorf("Scan(nil) = %v", got)
	}
}

func TestScan_MissingDir(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"PNG", ".png", " jpg ", "", ".Tiff"})
	want := []string{".png", ".jpg", ".tiff"}
	if !slices.Equal(got, want) {
		t.Errorf("NormalizeExtensions = %v, want %v", got, want)
	}
}

func TestOutputPath(t *testing.T) {
	cases := []struct {
		src, format, want string
	}{
		{"/in/pano_01.png", "", "/out/pano_01.png"},
		{"/in/pano_01.png", "jpg", "/out/pano_01.jpg"},
		{"/in/pano.tar.png", ".TIFF", "/out/pano.tar.tiff"},
		{"/in/pano.gif", "", "/out/pano.gif"},
		{"/in/pano.webp", "", "/out/pano.png"},
		{"/in/pano.WEBP", "bmp", "/out/pano.bmp"},
	}
	for _, tc := range cases {
		if got := OutputPath("/out", tc.src, tc.format); got != filepath.FromSlash(tc.want) {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tc.src, tc.format, got, tc.want)
		}
	}
}

func TestEncodeDecode_Lossless(t *testing.T) {
	src := testImage()
	for _, ext := range []string{".png", ".tiff", ".bmp"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "out"+ext)
			if err := Encode(path, src, 95); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			img, err := Decode(path)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
				t.Fatalf("bounds = %v", img.Bounds())
			}
			for y := 0; y < 3; y++ {
				for x := 0; x < 4; x++ {
					got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
					if got != src.NRGBAAt(x, y) {
						t.Fatalf("(%d, %d) = %v, want %v", x, y, got, src.NRGBAAt(x, y))
					}
				}
			}
		})
	}
}

func TestCanEncode(t *testing.T) {
	for ext, want := range map[string]bool{
		".png": true, "jpg": true, ".tif": true, ".bmp": true, "gif": true,
		".webp": false, ".xyz": false, "": false,
	} {
		if got := CanEncode(ext); got != want {
			t.Errorf("CanEncode(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestEncode_GIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gif")
	if err := Encode(path, testImage(), 0); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds = %v, want 4x3", b)
	}
}

func TestEncode_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")
	if err := Encode(path, testImage(), 90); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("width = %d, want 4", img.Bounds().Dx())
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xyz")
	if err := Encode(path, testImage(), 90); !errors.Is(err, ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
	if Exists(path) {
		t.Error("no file should be written for an unknown format")
	}
}

func TestEncode_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Encode(filepath.Join(dir, "a.png"), testImage(), 0); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.png" {
		t.Errorf("dir contents = %v", entries)
	}
}

func TestDecode_Errors(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(corrupt); !errors.Is(err, ErrDecode) {
		t.Errorf("corrupt: err = %v, want ErrDecode", err)
	}
	if _, err := Decode(filepath.Join(dir, "missing.png")); !errors.Is(err, ErrDecode) {
		t.Errorf("missing: err = %v, want ErrDecode", err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.png")
	if Exists(p) {
		t.Error("Exists before create")
	}
	touch(t, p)
	if !Exists(p) {
		t.Error("Exists after create")
	}
	if Exists(dir) {
		t.Error("directories are not files")
	}
}
