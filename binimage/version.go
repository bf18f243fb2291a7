package binimage

import (
	"fmt"
	"math"
	"strconv"

	"github.com/coreos/go-semver/semver"
)

// Version is the major.minor.patch.build quadruple stored in image headers.
// Vendor headers only carry major and minor.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
	Build uint8
}

// Semver returns the version as a semantic version, with the build number
// carried as build metadata.
func (v Version) Semver() semver.Version {
	sv := semver.Version{
		Major: int64(v.Major),
		Minor: int64(v.Minor),
		Patch: int64(v.Patch),
	}
	if v.Build != 0 {
		sv.Metadata = strconv.Itoa(int(v.Build))
	}
	return sv
}

func (v Version) String() string {
	return v.Semver().String()
}

// ParseVersion parses "1.2.3" or "1.2.3+4"
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, err
	}
	if sv.PreRelease != "" {
		return Version{}, fmt.Errorf("version %q: pre-release not supported", s)
	}

	var v Version
	fields := []struct {
		dst *uint8
		val int64
	}{{&v.Major, sv.Major}, {&v.Minor, sv.Minor}, {&v.Patch, sv.Patch}}
	for _, f := range fields {
		if f.val < 0 || f.val > math.MaxUint8 {
			return Version{}, fmt.Errorf("version %q: component %d out of range", s, f.val)
		}
		*f.dst = uint8(f.val)
	}

	if sv.Metadata != "" {
		build, err := strconv.ParseUint(sv.Metadata, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: build %q: %w", s, sv.Metadata, err)
		}
		v.Build = uint8(build)
	}
	return v, nil
}
