package fim

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// TestChecksumTotality is property #1 from spec.md §8: for any FileData
// produced by Extract, SHA1(canonical_string(data)) == data.Checksum.
func TestChecksumTotality(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}

	opts := CheckSize | CheckPerm | CheckOwner | CheckGroup | CheckMtime | CheckInode | CheckMD5 | CheckSHA1 | CheckSHA256
	data, err := Extract(path, opts, info, 1<<20, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := fmt.Sprintf("%d:%s:%s:%s:%s:%s:%s:%d:%d:%s:%s:%s",
		data.Size, data.Perm, data.Attributes, data.UID, data.GID, data.UserName, data.GroupName,
		data.Mtime, data.Inode, data.HashMD5, data.HashSHA1, data.HashSHA256)
	sum := sha1.Sum([]byte(want))
	wantHex := hex.EncodeToString(sum[:])

	if data.Checksum != wantHex {
		t.Errorf("checksum mismatch: got %s, want %s", data.Checksum, wantHex)
	}
}

func TestExtractEmptyFileGetsFixedDigests(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}

	data, err := Extract(path, CheckMD5|CheckSHA1|CheckSHA256, info, 1<<20, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if data.HashMD5 != EmptyMD5 || data.HashSHA1 != EmptySHA1 || data.HashSHA256 != EmptySHA256 {
		t.Errorf("expected empty-input digests, got md5=%s sha1=%s sha256=%s", data.HashMD5, data.HashSHA1, data.HashSHA256)
	}
}

func TestExtractUnsetOptionsLeaveFieldsBlank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}

	data, err := Extract(path, CheckSize, info, 1<<20, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if data.Perm != "" || data.HashMD5 != "" || data.HashSHA1 != "" || data.HashSHA256 != "" {
		t.Errorf("expected unset option fields blank, got %+v", data)
	}
	if data.Size != 1 {
		t.Errorf("expected size 1, got %d", data.Size)
	}
}
