// Package services contains domain logic that does not touch the outside world.
package services

import (
	"fmt"

	"github.com/ochairo/keg/internal/domain/entities"
)

// ResolveTarget selects the build target for the host OS.
//
// Only darwin and linux are recognized. Any other GOOS, or a recognized
// platform the formula declares no triple for, yields ErrUnsupportedPlatform
// so that the caller never reaches the build step.
func ResolveTarget(f *entities.Formula, goos string) (entities.BuildTarget, error) {
	platform, ok := entities.PlatformFromGOOS(goos)
	if !ok {
		return entities.BuildTarget{}, fmt.Errorf("%w: %s", entities.ErrUnsupportedPlatform, goos)
	}

	target, ok := f.TargetFor(platform)
	if !ok {
		return entities.BuildTarget{}, fmt.Errorf("%w: %s has no target for %s",
			entities.ErrUnsupportedPlatform, f.Name, platform)
	}

	return target, nil
}
