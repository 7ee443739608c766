//go:build !linux && !darwin

package indexer

import "os"

func inodeOf(info os.FileInfo) *uint64 {
	return nil
}
