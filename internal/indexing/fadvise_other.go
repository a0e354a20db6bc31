//go:build !linux

package indexing

import "os"

func adviseSequential(*os.File) {}

func adviseRandom(*os.File) {}
