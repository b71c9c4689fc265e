//go:build !linux

package shm

import "errors"

// ErrUnsupportedPlatform is returned on platforms other than Linux. The
// substrate's binary layout and polling protocol are platform-neutral by
// design, but this reimplementation only wires the actual /dev/shm
// mapping for Linux, the host the pack's shared-memory examples target;
// a Windows/macOS backend would implement the same Region contract
// against CreateFileMapping/shm_open without touching callers.
var ErrUnsupportedPlatform = errors.New("shm: unsupported platform")

// Region mirrors the Linux Region's shape so callers compile unconditionally.
type Region struct {
	Mem   []byte
	Fd    int
	Path  string
	Bytes int
}

func OpenOrCreate(address string, bytes int) (*Region, bool, error) {
	return nil, false, ErrUnsupportedPlatform
}

func Open(address string) (*Region, error) {
	return nil, ErrUnsupportedPlatform
}

func (r *Region) Close() error {
	return ErrUnsupportedPlatform
}

func Remove(address string) error {
	return ErrUnsupportedPlatform
}

func Exists(address string) bool {
	return false
}
