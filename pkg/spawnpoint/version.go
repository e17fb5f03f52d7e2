package spawnpoint

import (
	"fmt"

	"github.com/bft-labs/spawnpoint/pkg/codes"
	"github.com/bft-labs/spawnpoint/pkg/lifecycle"
	"github.com/bft-labs/spawnpoint/pkg/log"
	"github.com/bft-labs/spawnpoint/pkg/metrics"
	"github.com/bft-labs/spawnpoint/pkg/monitor"
	"github.com/bft-labs/spawnpoint/pkg/rotation"
)

// Version information for the spawnpoint module.
const (
	// Version is the current version of the spawnpoint module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

type moduleVersion struct {
	version    string
	minVersion string
}

func modules() map[string]moduleVersion {
	return map[string]moduleVersion{
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"rotation":  {rotation.Version, rotation.MinCompatibleVersion},
		"codes":     {codes.Version, codes.MinCompatibleVersion},
		"monitor":   {monitor.Version, monitor.MinCompatibleVersion},
		"metrics":   {metrics.Version, metrics.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}
}

// ModuleVersions returns the version of every sub-module.
func ModuleVersions() map[string]string {
	out := map[string]string{"spawnpoint": Version}
	for name, m := range modules() {
		out[name] = m.version
	}
	return out
}

// CompatibilityMatrix returns the minimum compatible version of every sub-module.
func CompatibilityMatrix() map[string]string {
	out := map[string]string{"spawnpoint": MinCompatibleVersion}
	for name, m := range modules() {
		out[name] = m.minVersion
	}
	return out
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	for name, m := range modules() {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
