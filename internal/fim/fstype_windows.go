//go:build windows

package fim

// fsTypeName is not implemented on Windows; skip-filesystem policy is a
// POSIX-only feature in the source (network/virtual filesystem names
// like nfs/smbfs).
func fsTypeName(path string) string {
	return ""
}
