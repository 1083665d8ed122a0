//go:build !windows

package fim

import (
	"fmt"
	"os"
	"os/user"
	"syscall"
)

// extractPlatformFields fills the POSIX-only fields of data: uid/gid and
// their resolved names (gated by CheckOwner/CheckGroup), and inode/dev,
// which the store's secondary index and the collision resolver need
// unconditionally regardless of whether CheckInode is set (spec.md §4.2,
// §4.5 — only the JSON serialization of "inode" is option-gated, not the
// extraction).
func extractPlatformFields(data *FileData, path string, info os.FileInfo, opts Option) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}

	data.Inode = uint64(st.Ino)
	data.Dev = uint64(st.Dev)

	if opts.Has(CheckOwner) {
		data.UID = fmt.Sprintf("%d", st.Uid)
		if u, err := user.LookupId(data.UID); err == nil {
			data.UserName = u.Username
		}
	}

	if opts.Has(CheckGroup) {
		data.GID = fmt.Sprintf("%d", st.Gid)
		if g, err := user.LookupGroupId(data.GID); err == nil {
			data.GroupName = g.Name
		}
	}
}
