package identity

import "github.com/spacecore/spacecore/pkg/errors"

// SdPathKind discriminates the SdPath tagged union.
type SdPathKind int

const (
	// SdPathPhysical addresses a concrete file on a concrete device.
	SdPathPhysical SdPathKind = iota

	// SdPathContent addresses an abstract handle resolvable to one or more
	// physical replicas sharing a content identity.
	SdPathContent
)

// SdPath is either a Physical path on a specific device, or a Content handle
// resolvable to any replica sharing that content identity.
type SdPath struct {
	Kind SdPathKind

	// Physical fields
	DeviceID string
	Path     string

	// Content fields
	ContentID string
}

// Physical constructs a Physical SdPath.
func Physical(deviceID, path string) SdPath {
	return SdPath{Kind: SdPathPhysical, DeviceID: deviceID, Path: path}
}

// Content constructs a Content SdPath.
func Content(contentID string) SdPath {
	return SdPath{Kind: SdPathContent, ContentID: contentID}
}

// IsPhysical reports whether the path is a Physical variant.
func (p SdPath) IsPhysical() bool { return p.Kind == SdPathPhysical }

// IsContent reports whether the path is a Content variant.
func (p SdPath) IsContent() bool { return p.Kind == SdPathContent }

// AsPhysical returns the (deviceID, path) pair, erroring if not Physical.
func (p SdPath) AsPhysical() (deviceID, path string, err error) {
	if p.Kind != SdPathPhysical {
		return "", "", errors.InvalidArgument("sdpath is not Physical")
	}
	return p.DeviceID, p.Path, nil
}

// AsContent returns the content id, erroring if not Content.
func (p SdPath) AsContent() (contentID string, err error) {
	if p.Kind != SdPathContent {
		return "", errors.InvalidArgument("sdpath is not Content")
	}
	return p.ContentID, nil
}

func (p SdPath) String() string {
	switch p.Kind {
	case SdPathPhysical:
		return "physical://" + p.DeviceID + p.Path
	case SdPathContent:
		return "content://" + p.ContentID
	default:
		return "sdpath(invalid)"
	}
}
