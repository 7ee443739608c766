//go:build linux || darwin

package indexer

import (
	"os"
	"syscall"
)

func inodeOf(info os.FileInfo) *uint64 {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	ino := uint64(stat.Ino)
	return &ino
}
