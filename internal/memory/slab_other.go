//go:build !unix

package memory

// pageSize mirrors slab_unix.go's rounding for platforms without
// golang.org/x/sys/unix support (no Getpagesize syscall available).
func pageSize() int { return 4096 }

func newSlab(initial int) Slab {
	if initial < pageSize() {
		initial = pageSize()
	}
	return newSliceSlab(initial)
}
