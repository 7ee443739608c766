//go:build !linux

package copyjob

import "github.com/spacecore/spacecore/pkg/errors"

func reflinkStrategy(source, destination string) (int64, error) {
	return 0, errors.Internal("reflink is not supported on this platform")
}
