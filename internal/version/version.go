package version

// version is set at build time via:
//
//	-ldflags "-X github.com/botpack/botpack/internal/version.version=v1.2.3"
//
// "local" marks an uninstrumented developer build.
var version = "local"

// Get returns the version string baked into the binary.
func Get() string {
	return version
}
