//go:build linux

// Package shm maps named regions of POSIX shared memory into the calling
// process. Segments live under /dev/shm, the same tmpfs-backed namespace
// boost::interprocess::managed_shared_memory uses on Linux, so the address
// a Sink binds is recognizable on the host filesystem for debugging.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const dir = "/dev/shm/"

// Region is a memory-mapped shared memory segment backed by a real OS
// object. Mem is valid until Close or Unmap.
type Region struct {
	Mem   []byte
	Fd    int
	Path  string
	Bytes int
}

// pathFor sanitizes an address into a /dev/shm file name. Addresses may
// contain '/' (the node/object sub-naming is applied above this package,
// not here), so '/' is folded to '_' to stay inside one flat shm
// directory.
func pathFor(address string) string {
	safe := make([]byte, len(address))
	for i := 0; i < len(address); i++ {
		c := address[i]
		if c == '/' {
			c = '_'
		}
		safe[i] = c
	}
	return dir + string(safe)
}

// OpenOrCreate opens the named region if it already exists, otherwise
// creates one of exactly bytes length. The race between a concurrent
// creator is resolved by attempting an exclusive create first and falling
// back to a plain open on EEXIST, mirroring the shape in widely used Go
// shm helpers (create-with-O_EXCL, open-on-EEXIST).
func OpenOrCreate(address string, bytes int) (*Region, bool, error) {
	path := pathFor(address)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	created := true
	if err != nil {
		if err != unix.EEXIST {
			return nil, false, fmt.Errorf("shm: create %s: %w", path, err)
		}
		created = false
		fd, err = unix.Open(path, unix.O_RDWR, 0666)
		if err != nil {
			return nil, false, fmt.Errorf("shm: open %s: %w", path, err)
		}
	}

	if created {
		if err := unix.Ftruncate(fd, int64(bytes)); err != nil {
			unix.Close(fd)
			return nil, false, fmt.Errorf("shm: ftruncate %s: %w", path, err)
		}
	} else {
		st, statErr := os.Stat(path)
		if statErr != nil {
			unix.Close(fd)
			return nil, false, fmt.Errorf("shm: stat %s: %w", path, statErr)
		}
		if int(st.Size()) < bytes {
			unix.Close(fd)
			return nil, false, fmt.Errorf("shm: existing segment %s too small (%d < %d)", path, st.Size(), bytes)
		}
		bytes = int(st.Size())
	}

	mem, err := unix.Mmap(fd, 0, bytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, false, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	return &Region{Mem: mem, Fd: fd, Path: path, Bytes: bytes}, created, nil
}

// Open attaches to an existing region without creating one. Returns
// os.ErrNotExist if the region is missing.
func Open(address string) (*Region, error) {
	path := pathFor(address)

	fd, err := unix.Open(path, unix.O_RDWR, 0666)
	if err != nil {
		if err == unix.ENOENT {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	st, err := os.Stat(path)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}

	mem, err := unix.Mmap(fd, 0, int(st.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	return &Region{Mem: mem, Fd: fd, Path: path, Bytes: int(st.Size())}, nil
}

// Close unmaps the region and closes its file descriptor. It does not
// remove the underlying OS object; call Remove for that.
func (r *Region) Close() error {
	var firstErr error
	if r.Mem != nil {
		if err := unix.Munmap(r.Mem); err != nil {
			firstErr = fmt.Errorf("shm: munmap %s: %w", r.Path, err)
		}
		r.Mem = nil
	}
	if r.Fd != 0 {
		if err := unix.Close(r.Fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shm: close %s: %w", r.Path, err)
		}
		r.Fd = 0
	}
	return firstErr
}

// Remove destroys the named OS object. It is safe to call after the last
// Region referencing it has been Closed, or before one has ever been
// opened (it is then a no-op reporting no error).
func Remove(address string) error {
	path := pathFor(address)
	if err := unix.Unlink(path); err != nil && err != unix.ENOENT {
		return fmt.Errorf("shm: unlink %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the named OS object is currently present.
func Exists(address string) bool {
	_, err := os.Stat(pathFor(address))
	return err == nil
}
