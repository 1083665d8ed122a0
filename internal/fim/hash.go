package fim

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ComputeFileHashes computes the md5, sha1, and sha256 of a regular
// file's content in a single pass, consulting an optional platform
// pre-filter command first (the collaborator spec.md §4.2 references).
// maxSize bounds how many bytes are read; callers are expected to have
// already checked 0 < size < maxSize before calling, matching
// AttributeExtractor's gating.
func ComputeFileHashes(path string, prefilterCmd string, maxSize int64) (md5Hex, sha1Hex, sha256Hex string, err error) {
	if prefilterCmd != "" {
		if err := runPrefilter(prefilterCmd, path); err != nil {
			return "", "", "", fmt.Errorf("prefilter command: %w", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", "", err
	}
	defer f.Close()

	hMD5 := md5.New()
	hSHA1 := sha1.New()
	hSHA256 := sha256.New()

	if _, err := io.Copy(io.MultiWriter(hMD5, hSHA1, hSHA256), io.LimitReader(f, maxSize)); err != nil {
		return "", "", "", err
	}

	return hex.EncodeToString(hMD5.Sum(nil)),
		hex.EncodeToString(hSHA1.Sum(nil)),
		hex.EncodeToString(hSHA256.Sum(nil)),
		nil
}

// runPrefilter invokes the configured pre-filter command with the target
// path as its sole argument; a non-zero exit is treated as a hashing
// failure, matching the source treating a failed pre-filter the same as
// a failed read.
func runPrefilter(cmdline, path string) error {
	cmd := exec.Command(cmdline, path)
	return cmd.Run()
}
