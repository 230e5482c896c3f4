// Package release holds the publish-mode enum and the tag selection logic.
// Tag selection is pure: it reads no configuration, no environment, and has
// no side effects, so both trigger paths (scheduled and manual dispatch)
// share the exact same decision.
package release

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/aswathsr101/djl-publisher/internal/errors"
)

// Mode is the publish mode, parsed from trigger input.
type Mode string

const (
	ModeNightly Mode = "nightly"
	ModeRelease Mode = "release"
)

// flavor is the hardware flavor baked into every tag. Only CPU images are
// published by this pipeline; GPU flavors ship through a separate one.
const flavor = "cpu"

// ParseMode converts a raw trigger string into a Mode. An empty string
// defaults to nightly; anything other than "nightly" or "release" is
// rejected rather than silently ignored.
func ParseMode(s string) (Mode, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", string(ModeNightly):
		return ModeNightly, nil
	case string(ModeRelease):
		return ModeRelease, nil
	default:
		return "", fmt.Errorf("%w: got %q", errors.ErrInvalidMode, s)
	}
}

// PublishRequest describes a single publish invocation. Constructed once
// from trigger input and a version lookup, immutable thereafter.
type PublishRequest struct {
	Mode        Mode   `json:"mode"`
	Version     string `json:"version"`
	PushEnabled bool   `json:"push_enabled"`
}

// NewPublishRequest builds a PublishRequest from raw trigger input.
// The version may be empty for nightly mode.
func NewPublishRequest(rawMode, version string) (PublishRequest, error) {
	mode, err := ParseMode(rawMode)
	if err != nil {
		return PublishRequest{}, err
	}

	decision, err := SelectTag(mode, version)
	if err != nil {
		return PublishRequest{}, err
	}

	return PublishRequest{
		Mode:        mode,
		Version:     version,
		PushEnabled: decision.Push,
	}, nil
}

// TagDecision is the outcome of tag selection: the tag suffix to apply and
// whether the built image should be pushed.
type TagDecision struct {
	Tag  string
	Push bool
}

// SelectTag determines the image tag for a mode and version.
//
//	nightly → "cpu-nightly", pushed on every run
//	release → "<version>-cpu", pushed once, version required
//
// Release versions must parse as semver so a typo'd dispatch never mints a
// permanent registry tag.
func SelectTag(mode Mode, version string) (TagDecision, error) {
	switch mode {
	case ModeNightly:
		return TagDecision{Tag: flavor + "-nightly", Push: true}, nil
	case ModeRelease:
		if version == "" {
			return TagDecision{}, errors.ErrMissingVersion
		}
		if _, err := semver.NewVersion(version); err != nil {
			return TagDecision{}, fmt.Errorf("release version %q is not a valid semantic version: %w", version, err)
		}
		return TagDecision{Tag: version + "-" + flavor, Push: true}, nil
	default:
		return TagDecision{}, fmt.Errorf("%w: got %q", errors.ErrInvalidMode, mode)
	}
}

// Reference renders a full image reference for a repository, e.g.
// "deepjavalibrary/djl-serving:cpu-nightly".
func (d TagDecision) Reference(repository string) string {
	return fmt.Sprintf("%s:%s", repository, d.Tag)
}
