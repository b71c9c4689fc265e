package segment

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/visiona/oatbus/segment/internal/shm"
)

// maxDirectoryEntries bounds how many named objects a segment can hold.
// The substrate only ever needs two ("shmgr" for the Node and "shobj"
// for the payload), the extra headroom is for future
// sub-objects without a layout break.
const maxDirectoryEntries = 8

const nameCap = 48

// dirEntry is one slot in a segment's named-object directory. It lives
// directly in shared memory, so every field is fixed-width and accessed
// through atomics where more than one process may race on it.
type dirEntry struct {
	state    uint32 // 0 = empty, 1 = ready
	_        uint32
	nameHash uint64
	nameLen  uint32
	_        uint32
	offset   uint64
	size     uint64
	name     [nameCap]byte
}

const dirEntrySize = int(unsafe.Sizeof(dirEntry{}))

// dirHeader sits at offset 0 of every segment. spinlock guards entry
// registration only; it is never held across a blocking call.
type dirHeader struct {
	magic    uint32
	version  uint32
	spinlock uint32
	_        uint32
	nextOff  uint64
	entries  [maxDirectoryEntries]dirEntry
}

const dirHeaderSize = int(unsafe.Sizeof(dirHeader{}))

const segmentMagic = 0x53544142 // "BATS" backwards, just a tag

// Segment is a mapped shared-memory region with a named-object directory
// at its front.
type Segment struct {
	address string
	region  *shm.Region
	hdr     *dirHeader
}

var addressLocks sync.Map // address string -> *sync.Mutex

func lockFor(address string) *sync.Mutex {
	v, _ := addressLocks.LoadOrStore(address, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// OpenOrCreate opens the segment at address if it exists, otherwise
// creates one sized dirHeaderSize+bytes. bytes must already include room
// for every named object the caller intends to place (Node + payload T +
// any extra region), as computed by the endpoint package.
func OpenOrCreate(address string, bytes int) (*Segment, error) {
	lk := lockFor(address)
	lk.Lock()
	defer lk.Unlock()

	region, created, err := shm.OpenOrCreate(address, dirHeaderSize+bytes)
	if err != nil {
		return nil, err
	}

	hdr := (*dirHeader)(unsafe.Pointer(&region.Mem[0]))

	if created {
		hdr.magic = segmentMagic
		hdr.version = 1
		atomic.StoreUint64(&hdr.nextOff, uint64(dirHeaderSize))
	} else if atomic.LoadUint32(&hdr.magic) != segmentMagic {
		region.Close()
		return nil, fmt.Errorf("segment: %s: not an oatbus segment", address)
	}

	return &Segment{address: address, region: region, hdr: hdr}, nil
}

// Open attaches to an existing segment without creating one.
func Open(address string) (*Segment, error) {
	region, err := shm.Open(address)
	if err != nil {
		return nil, err
	}
	hdr := (*dirHeader)(unsafe.Pointer(&region.Mem[0]))
	if atomic.LoadUint32(&hdr.magic) != segmentMagic {
		region.Close()
		return nil, fmt.Errorf("segment: %s: not an oatbus segment", address)
	}
	return &Segment{address: address, region: region, hdr: hdr}, nil
}

// Exists reports whether address currently has a backing OS object.
func Exists(address string) bool {
	return shm.Exists(address)
}

// Remove destroys the segment's backing OS object. Callers must ensure no
// live Segment handle still references it (or that this is acceptable —
// see node/endpoint for the refcounted removal protocol).
func Remove(address string) error {
	lk := lockFor(address)
	lk.Lock()
	defer lk.Unlock()
	return shm.Remove(address)
}

// Close unmaps the segment without removing the backing OS object.
func (s *Segment) Close() error {
	return s.region.Close()
}

// Bytes exposes the raw mapped region, for components (e.g. the frame
// buffer extra region) that manage their own sub-layout by offset.
func (s *Segment) Bytes() []byte {
	return s.region.Mem
}

// BaseOffset returns the first byte offset available for caller-managed
// extra data, i.e. the high-water mark of the named-object directory's
// bump allocator at the moment of the call. Endpoint places a frame's
// pixel buffer with Reserve, not with this offset.
func (s *Segment) BaseOffset() uint64 {
	return atomic.LoadUint64(&s.hdr.nextOff)
}

// Reserve advances the bump allocator by n bytes without associating a
// name, returning the offset at which the caller may place raw data (e.g.
// a pixel buffer). It never collides with FindOrConstruct allocations
// because both share the same atomic cursor.
func (s *Segment) Reserve(n uint64) (offset uint64, err error) {
	for {
		cur := atomic.LoadUint64(&s.hdr.nextOff)
		next := cur + n
		if int(next) > len(s.region.Mem) {
			return 0, ErrTooLarge
		}
		if atomic.CompareAndSwapUint64(&s.hdr.nextOff, cur, next) {
			return cur, nil
		}
	}
}

func hashName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// FindOrConstruct locates the named object of type T inside the segment,
// default-constructing (zero-valuing) it on first call, the counterpart
// of the original's find_or_construct<X>. The returned bool reports whether this call
// performed the construction (true) or found an existing entry (false).
func FindOrConstruct[T any](s *Segment, name string) (ptr *T, constructed bool, err error) {
	if len(name) > nameCap {
		return nil, false, fmt.Errorf("segment: name %q exceeds %d bytes", name, nameCap)
	}
	size := uint64(unsafe.Sizeof(*new(T)))
	align := uint64(unsafe.Alignof(*new(T)))
	h := hashName(name)

	for !atomic.CompareAndSwapUint32(&s.hdr.spinlock, 0, 1) {
		// Short critical section elsewhere; plain spin is appropriate.
	}
	defer atomic.StoreUint32(&s.hdr.spinlock, 0)

	var free *dirEntry
	for i := range s.hdr.entries {
		e := &s.hdr.entries[i]
		if atomic.LoadUint32(&e.state) == 0 {
			if free == nil {
				free = e
			}
			continue
		}
		if e.nameHash == h && int(e.nameLen) == len(name) && string(e.name[:e.nameLen]) == name {
			if e.size != size {
				return nil, false, ErrTypeMismatch
			}
			return (*T)(unsafe.Pointer(&s.region.Mem[e.offset])), false, nil
		}
	}

	if free == nil {
		return nil, false, ErrDirectoryFull
	}

	offset := alignUp(atomic.LoadUint64(&s.hdr.nextOff), align)
	end := offset + size
	if int(end) > len(s.region.Mem) {
		return nil, false, ErrTooLarge
	}
	atomic.StoreUint64(&s.hdr.nextOff, end)

	free.nameHash = h
	free.nameLen = uint32(len(name))
	copy(free.name[:], name)
	free.offset = offset
	free.size = size
	atomic.StoreUint32(&free.state, 1)

	return (*T)(unsafe.Pointer(&s.region.Mem[offset])), true, nil
}

// Find is the read-only counterpart of FindOrConstruct: it never creates.
func Find[T any](s *Segment, name string) (*T, error) {
	h := hashName(name)
	size := uint64(unsafe.Sizeof(*new(T)))

	for i := range s.hdr.entries {
		e := &s.hdr.entries[i]
		if atomic.LoadUint32(&e.state) == 0 {
			continue
		}
		if e.nameHash == h && int(e.nameLen) == len(name) && string(e.name[:e.nameLen]) == name {
			if e.size != size {
				return nil, ErrTypeMismatch
			}
			return (*T)(unsafe.Pointer(&s.region.Mem[e.offset])), nil
		}
	}
	return nil, ErrNotFound
}

func alignUp(off, align uint64) uint64 {
	if align <= 1 {
		return off
	}
	return (off + align - 1) &^ (align - 1)
}
