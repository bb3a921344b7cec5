//go:build linux

package host

import (
	"os"

	"golang.org/x/sys/unix"
)

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		if release := unix.ByteSliceToString(uts.Release[:]); release != "" {
			return release
		}
	}
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return ""
	}
	return releaseFromProcVersion(string(data))
}
