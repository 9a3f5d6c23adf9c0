//go:build !unix

package discovery

import (
	"os"

	"cerebro/internal/types"
)

// identityOf has no dev/inode concept outside unix; cycle detection and
// hardlink awareness are simply unavailable there.
func identityOf(info os.FileInfo) (devIno, bool) {
	return devIno{}, false
}

// FileIdentityOf returns a zero FileIdentity outside unix.
func FileIdentityOf(info os.FileInfo) types.FileIdentity {
	return types.FileIdentity{}
}
