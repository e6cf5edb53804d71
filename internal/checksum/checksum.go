// Package checksum computes the content digests used for cache staleness
// checks. The format matches the "<key>.md5" sidecar objects published next to
// artifacts: lowercase hex MD5.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

const bufferSize = 64 * 1024 // 64KB buffer

// CalculateFileMD5 calculates the MD5 digest of a file
func CalculateFileMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return CalculateMD5(file)
}

// CalculateMD5 calculates the MD5 digest of everything r yields
func CalculateMD5(r io.Reader) (string, error) {
	h := md5.New()
	buffer := make([]byte, bufferSize)

	if _, err := io.CopyBuffer(h, r, buffer); err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// TeeReaderWithChecksum computes the digest of a stream while it is consumed
type TeeReaderWithChecksum struct {
	reader   io.Reader
	hash     hash.Hash
	checksum string
	done     bool
}

// NewTeeReaderWithChecksum creates a new TeeReaderWithChecksum
func NewTeeReaderWithChecksum(r io.Reader) *TeeReaderWithChecksum {
	return &TeeReaderWithChecksum{
		reader: r,
		hash:   md5.New(),
	}
}

// Read implements io.Reader
func (t *TeeReaderWithChecksum) Read(p []byte) (n int, err error) {
	n, err = t.reader.Read(p)
	if n > 0 {
		if _, werr := t.hash.Write(p[:n]); werr != nil {
			return n, werr
		}
	}
	if err == io.EOF {
		t.done = true
		t.checksum = hex.EncodeToString(t.hash.Sum(nil))
	}
	return n, err
}

// Checksum returns the calculated digest (only valid after EOF)
func (t *TeeReaderWithChecksum) Checksum() (string, error) {
	if !t.done {
		return "", fmt.Errorf("checksum not yet calculated (read not complete)")
	}
	return t.checksum, nil
}

// Normalize trims whitespace and lowercases a digest read from a sidecar
// object, which is often written by `md5sum` with a trailing file name.
func Normalize(digest string) string {
	fields := strings.Fields(digest)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// CompareChecksums compares two digests after normalization
func CompareChecksums(checksum1, checksum2 string) bool {
	return Normalize(checksum1) == Normalize(checksum2)
}
