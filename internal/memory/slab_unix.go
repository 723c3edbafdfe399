//go:build unix

package memory

import "golang.org/x/sys/unix"

// pageSize rounds the slab's initial capacity up to the OS page size
// (golang.org/x/sys/unix, present in the pack via joshuapare-hivekit's
// go.mod) so the first backing slice lands on a boundary the runtime's
// allocator already aligns to, rather than an arbitrary constant. This is
// sizing advice only: the slab is still a Go slice of *Object pointers
// (see newSliceSlab in slab.go), not memory obtained from unix.Mmap — a
// real mmap-backed arena would have to store objects as raw bytes instead
// of *Object so the GC never has to scan non-Go-managed memory for
// pointers, which is a much larger change than this core's object model
// currently makes worthwhile.
func pageSize() int {
	n := unix.Getpagesize()
	if n <= 0 {
		return 4096
	}
	return n
}

func newSlab(initial int) Slab {
	ps := pageSize()
	if initial < ps {
		initial = ps
	}
	return newSliceSlab(initial)
}
