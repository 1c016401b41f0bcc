// Package lfs wraps the Git LFS command line and recognises pointer files
// that were checked out without their content.
package lfs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PointerVersion is the spec URL on the first line of every pointer file.
const PointerVersion = "https://git-lfs.github.com/spec/v1"

// maxPointerSize bounds how large a pointer file can be.
const maxPointerSize = 1024

// ErrNotPointer is returned by ParsePointer for content that is not a pointer.
var ErrNotPointer = errors.New("lfs: not a pointer file")

// Pointer is the parsed content of a pointer file.
type Pointer struct {
	OID  string
	Size int64
}

// IsPointer reports whether data looks like an un-fetched pointer file.
func IsPointer(data []byte) bool {
	return len(data) < maxPointerSize && bytes.HasPrefix(data, []byte("version "+PointerVersion))
}

// ParsePointer parses the key/value lines of a pointer file.
func ParsePointer(data []byte) (*Pointer, error) {
	if !IsPointer(data) {
		return nil, ErrNotPointer
	}
	p := &Pointer{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), " ")
		if !ok {
			continue
		}
		switch key {
		case "oid":
			p.OID = value
		case "size":
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("lfs: invalid pointer size %q: %w", value, err)
			}
			p.Size = size
		}
	}
	if p.OID == "" {
		return nil, fmt.Errorf("%w: missing oid", ErrNotPointer)
	}
	return p, nil
}
