//go:build !windows

package fim

import "golang.org/x/sys/unix"

// fsTypeName reports the lowercase filesystem type name mounted at
// path's containing volume, or "" if it cannot be determined. Only the
// handful of network/virtual filesystem types the source's skip list
// typically names are recognized; unrecognized magic numbers report "".
func fsTypeName(path string) string {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return ""
	}

	switch int64(st.Type) {
	case 0x6969: // NFS_SUPER_MAGIC
		return "nfs"
	case 0x517B: // SMB_SUPER_MAGIC
		return "smb"
	case 0xFF534D42: // CIFS_MAGIC_NUMBER
		return "cifs"
	case 0x01021994: // TMPFS_MAGIC
		return "tmpfs"
	default:
		return ""
	}
}
