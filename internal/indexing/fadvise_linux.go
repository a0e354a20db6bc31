//go:build linux

package indexing

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel the file is about to be read front to
// back. The hint is best effort.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_WILLNEED)
}

// adviseRandom switches the hint once the file serves line-range queries.
func adviseRandom(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
}
