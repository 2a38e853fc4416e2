package pkgfile

import (
	"fmt"
	"os"

	"github.com/sassoftware/go-rpmutils"
)

// RPMInfo holds the header fields of an RPM file that matter when
// registering it with a package registry.
type RPMInfo struct {
	Name    string
	Epoch   int64
	Version string
	Release string
	Arch    string
	Summary string
	License string
	URL     string
}

// ReadRPM extracts metadata from the header of an RPM file.
func ReadRPM(path string) (*RPMInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPM: %w", err)
	}

	info := &RPMInfo{
		Name:    getStringTag(rpm, rpmutils.NAME),
		Epoch:   getIntTag(rpm, rpmutils.EPOCH),
		Version: getStringTag(rpm, rpmutils.VERSION),
		Release: getStringTag(rpm, rpmutils.RELEASE),
		Arch:    getStringTag(rpm, rpmutils.ARCH),
		Summary: getStringTag(rpm, rpmutils.SUMMARY),
		License: getStringTag(rpm, rpmutils.LICENSE),
		URL:     getStringTag(rpm, rpmutils.URL),
	}

	return info, nil
}

// Filename rebuilds the canonical filename of the package. Packages
// with a non-zero epoch carry it as a prefix, the way YUM metadata
// references them.
func (i *RPMInfo) Filename() string {
	if i.Epoch == 0 {
		return fmt.Sprintf("%s-%s-%s.%s.rpm", i.Name, i.Version, i.Release, i.Arch)
	}
	return fmt.Sprintf("%d:%s-%s-%s.%s.rpm", i.Epoch, i.Name, i.Version, i.Release, i.Arch)
}

// getStringTag safely gets a string tag from RPM
func getStringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	default:
		return fmt.Sprintf("%v", v)
	}

	return ""
}

// getIntTag safely gets an integer tag from RPM
func getIntTag(rpm *rpmutils.Rpm, tag int) int64 {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return 0
	}

	switch v := val.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case []int32:
		if len(v) > 0 {
			return int64(v[0])
		}
	}

	return 0
}
