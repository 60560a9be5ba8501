// Package tokencost estimates how many prompt tokens an image costs under the
// tiling schemes of the supported vision backends.
package tokencost

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mixaill76/auto_ai_vision/internal/imagecontent"
)

// ErrInvalidSize is returned for non-positive image dimensions.
var ErrInvalidSize = errors.New("tokencost: invalid image size")

// Version selects a billing formula.
type Version int

const (
	// VersionA tiles into 512px patches after capping the short side at 1024px: 70 + 140 per patch.
	VersionA Version = iota
	// VersionB caps the long side at 2048px and the short side at 768px: 85 + 170 per patch, 85 flat for low detail.
	VersionB
)

func (v Version) String() string {
	switch v {
	case VersionA:
		return "a"
	case VersionB:
		return "b"
	default:
		return fmt.Sprintf("version(%d)", int(v))
	}
}

// ParseVersion parses "a" or "b" (case-insensitive).
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return VersionA, nil
	case "b":
		return VersionB, nil
	default:
		return 0, fmt.Errorf("tokencost: unknown version %q (expected a or b)", s)
	}
}

// Detail is the requested image fidelity.
type Detail int

const (
	DetailAuto Detail = iota
	DetailLow
	DetailHigh
)

func (d Detail) String() string {
	switch d {
	case DetailAuto:
		return "auto"
	case DetailLow:
		return "low"
	case DetailHigh:
		return "high"
	default:
		return fmt.Sprintf("detail(%d)", int(d))
	}
}

// ParseDetail parses "auto", "low" or "high". An empty string means auto.
func ParseDetail(s string) (Detail, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DetailAuto, nil
	case "low":
		return DetailLow, nil
	case "high":
		return DetailHigh, nil
	default:
		return 0, fmt.Errorf("tokencost: unknown detail %q (expected auto, low or high)", s)
	}
}

const (
	patchSize = 512

	versionAShortCap = 1024
	versionABase     = 70
	versionAPerPatch = 140

	versionBLongCap  = 2048
	versionBShortCap = 768
	versionBBase     = 85
	versionBPerPatch = 170
	versionBLow      = 85
)

// Estimate returns the token cost of a width x height image.
// detail only affects VersionB.
func Estimate(width, height int, detail Detail, version Version) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	switch version {
	case VersionA:
		return estimateA(width, height), nil
	case VersionB:
		if detail == DetailLow {
			return versionBLow, nil
		}
		return estimateB(width, height), nil
	default:
		return 0, fmt.Errorf("tokencost: unknown version %d", int(version))
	}
}

// ImageTokens returns the cost of img, reading its size (remote references carry it).
func ImageTokens(img *imagecontent.Image, detail Detail, version Version) (int, error) {
	if version == VersionB && detail == DetailLow {
		return versionBLow, nil
	}
	w, h, err := img.Size()
	if err != nil {
		return 0, err
	}
	return Estimate(w, h, detail, version)
}

func estimateA(width, height int) int {
	long, short := sorted(width, height)
	if short > versionAShortCap {
		long, short = rescale(long, short, versionAShortCap)
	}
	return versionABase + patches(long, short)*versionAPerPatch
}

func estimateB(width, height int) int {
	long, short := sorted(width, height)
	if long > versionBLongCap {
		short, long = rescale(short, long, versionBLongCap)
	}
	if short > versionBShortCap {
		long, short = rescale(long, short, versionBShortCap)
	}
	return versionBBase + patches(long, short)*versionBPerPatch
}

func sorted(width, height int) (long, short int) {
	if width >= height {
		return width, height
	}
	return height, width
}

// rescale clamps capped to limit and divides other by the same ratio, rounding down.
func rescale(other, capped, limit int) (int, int) {
	ratio := float64(capped) / float64(limit)
	return int(math.Floor(float64(other) / ratio)), limit
}

func patches(long, short int) int {
	return ceilDiv(long, patchSize) * ceilDiv(short, patchSize)
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
