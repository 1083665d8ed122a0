package fim

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// permString renders a file mode's permission bits as octal digits
// (e.g. "644" for rw-r--r--), the form the source stores in its
// attribute set, so Checksum stays bit-for-bit comparable across scans.
func permString(mode os.FileMode) string {
	return fmt.Sprintf("%o", mode.Perm())
}

// Extract builds an immutable FileData for path given a pre-obtained
// os.FileInfo and the option mask that gates which fields get filled.
// maxSize is the configured file_max_size; prefilterCmd is the optional
// platform pre-filter command consulted before reading file content for
// hashing. Extract is a pure function over its inputs: it performs no
// store access and returns ErrExtractFailed only when hashing fails.
func Extract(path string, opts Option, info os.FileInfo, maxSize int64, prefilterCmd string) (FileData, error) {
	data := FileData{}

	if opts.Has(CheckSize) {
		data.Size = uint64(info.Size())
	}
	if opts.Has(CheckPerm) {
		data.Perm = permString(info.Mode())
	}
	if opts.Has(CheckMtime) {
		data.Mtime = info.ModTime().Unix()
	}

	extractPlatformFields(&data, path, info, opts)

	data.HashMD5 = EmptyMD5
	data.HashSHA1 = EmptySHA1
	data.HashSHA256 = EmptySHA256

	isRegular := info.Mode().IsRegular()
	wantsHash := opts.Has(CheckMD5) || opts.Has(CheckSHA1) || opts.Has(CheckSHA256)
	if isRegular && info.Size() > 0 && info.Size() < maxSize && wantsHash {
		md5s, sha1s, sha256s, err := ComputeFileHashes(path, prefilterCmd, maxSize)
		if err != nil {
			return FileData{}, Errorf(ErrExtractFailed, path, err)
		}
		data.HashMD5, data.HashSHA1, data.HashSHA256 = md5s, sha1s, sha256s
	}

	if !opts.Has(CheckMD5) {
		data.HashMD5 = ""
	}
	if !opts.Has(CheckSHA1) {
		data.HashSHA1 = ""
	}
	if !opts.Has(CheckSHA256) {
		data.HashSHA256 = ""
	}

	data.Options = opts
	data.LastEvent = time.Now().Unix()
	data.Scanned = true
	data.Checksum = Checksum(data)

	return data, nil
}

// Checksum computes the SHA-1 of the canonical attribute concatenation:
// size:perm:attributes:uid:gid:user_name:group_name:mtime:inode:md5:sha1:sha256
// Unset string fields contribute an empty segment; this is invariant I1.
func Checksum(d FileData) string {
	s := fmt.Sprintf("%d:%s:%s:%s:%s:%s:%s:%d:%d:%s:%s:%s",
		d.Size, d.Perm, d.Attributes, d.UID, d.GID, d.UserName, d.GroupName,
		d.Mtime, d.Inode, d.HashMD5, d.HashSHA1, d.HashSHA256)
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
