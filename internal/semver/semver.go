// SPDX-License-Identifier: Apache-2.0

// Package semver is the small major.minor[.revision] version type used to
// tag package archives and compare server versions reported by a live
// database's "SHOW server_version" output.
package semver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

type Semver struct {
	Major    uint32
	Minor    uint32
	Revision *uint32
}

func New(major, minor uint32, revision *uint32) Semver {
	return Semver{Major: major, Minor: minor, Revision: revision}
}

func (v Semver) String() string {
	if v.Revision != nil {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, *v.Revision)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than o. A missing revision is treated as revision 0.
func (v Semver) Compare(o Semver) int {
	if v.Major != o.Major {
		return cmpUint32(v.Major, o.Major)
	}
	if v.Minor != o.Minor {
		return cmpUint32(v.Minor, o.Minor)
	}
	return cmpUint32(v.revisionOrZero(), o.revisionOrZero())
}

func (v Semver) revisionOrZero() uint32 {
	if v.Revision == nil {
		return 0
	}
	return *v.Revision
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Semver) Less(o Semver) bool { return v.Compare(o) < 0 }

var versionPattern = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// Parse accepts "11", "10.4", or "9.4.18"-shaped strings. A missing minor
// part defaults to 0; a missing revision is left nil.
func Parse(version string) (Semver, error) {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return Semver{}, fmt.Errorf("semver: unexpected version format: %q", version)
	}

	major, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return Semver{}, fmt.Errorf("semver: unexpected major part: %q", version)
	}

	minor := uint64(0)
	if m[2] != "" {
		minor, err = strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return Semver{}, fmt.Errorf("semver: unexpected minor part: %q", version)
		}
	}

	var revision *uint32
	if m[3] != "" {
		r, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil {
			return Semver{}, fmt.Errorf("semver: unexpected revision part: %q", version)
		}
		r32 := uint32(r)
		revision = &r32
	}

	return Semver{Major: uint32(major), Minor: uint32(minor), Revision: revision}, nil
}

func MustParse(version string) Semver {
	v, err := Parse(version)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Semver) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Semver) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
