package pkgfile

import (
	"bytes"
	"os"
	"path/filepath"
)

// PackageType identifies the format of a local package file.
type PackageType string

const (
	TypeUnknown PackageType = "unknown"
	TypeRpm     PackageType = "rpm"
	TypeDeb     PackageType = "deb"
	TypeGzip    PackageType = "gzip"
	TypeGeneric PackageType = "generic"
)

// Magic bytes for package detection
var (
	// Debian packages start with "!<arch>\ndebian"
	debMagic = []byte("!<arch>\ndebian")

	// RPM packages start with 0xED 0xAB 0xEE 0xDB
	rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

	// Gzip magic bytes (tarballs, source archives)
	gzipMagic = []byte{0x1F, 0x8B}
)

// Detect determines the package type based on magic bytes and file
// extension. Files that are neither RPM nor Debian packages are
// reported as generic.
func Detect(path string) (PackageType, error) {
	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, 512)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return TypeUnknown, err
	}
	header = header[:n]

	ext := filepath.Ext(path)

	if bytes.HasPrefix(header, debMagic) || ext == ".deb" {
		return TypeDeb, nil
	}

	if bytes.HasPrefix(header, rpmMagic) || ext == ".rpm" {
		return TypeRpm, nil
	}

	if bytes.HasPrefix(header, gzipMagic) {
		return TypeGzip, nil
	}

	return TypeGeneric, nil
}
