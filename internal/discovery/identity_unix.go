//go:build unix

package discovery

import (
	"os"
	"syscall"

	"cerebro/internal/types"
)

// identityOf extracts dev/inode/nlink for symlink-cycle detection and
// hardlink-aware identity, mirroring the teacher's newFileInfo in
// internal/scanner/types.go.
func identityOf(info os.FileInfo) (devIno, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return devIno{}, false
	}
	return devIno{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert // platform-dependent type
}

// FileIdentityOf builds the full FileIdentity the hashing and trash
// stages use to detect hardlinks, for any os.FileInfo obtained during or
// after discovery.
func FileIdentityOf(info os.FileInfo) types.FileIdentity {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return types.FileIdentity{}
	}
	return types.FileIdentity{
		Dev:       uint64(stat.Dev), //nolint:unconvert // platform-dependent type
		Inode:     stat.Ino,
		LinkCount: uint64(stat.Nlink), //nolint:unconvert // platform-dependent type
	}
}
