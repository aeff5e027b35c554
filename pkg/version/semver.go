package version

import (
	"github.com/Masterminds/semver/v3"
)

var (
	parsedVersion  *semver.Version
	parseAttempted bool
)

// resetParsedVersion clears the cached parse result for tests.
func resetParsedVersion() {
	parsedVersion = nil
	parseAttempted = false
}

// Parsed returns the build version as a semantic version, parsed once
// and cached. Dev builds carry a bare "dev" string and parse to nil.
func Parsed() *semver.Version {
	if parsedVersion == nil && !parseAttempted {
		parseAttempted = true
		if v, err := semver.NewVersion(Version); err == nil {
			parsedVersion = v
		}
	}
	return parsedVersion
}

// IsPrerelease reports whether the build carries a prerelease tag, as
// in "v1.2.0-beta.1". Unparseable versions report false.
func IsPrerelease() bool {
	v := Parsed()
	return v != nil && v.Prerelease() != ""
}

// IsDevBuild reports whether the binary was built without a release
// version stamped in.
func IsDevBuild() bool {
	return Parsed() == nil
}
