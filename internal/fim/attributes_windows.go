//go:build windows

package fim

import "os"

// extractPlatformFields is a stub on Windows: the core specified here
// targets the POSIX inode-collision protocol (spec.md §1); Windows ACL
// decoding, attribute strings, and the registry side of syscheck are
// explicitly out of scope. Inode/Dev stay zero, matching CHECK_INODE
// never being meaningful on this platform.
func extractPlatformFields(data *FileData, path string, info os.FileInfo, opts Option) {
	if opts.Has(CheckOwner) {
		// Resolving a Windows SID to account name requires the registry
		// collaborator this core does not implement; left blank.
	}
}
