package gateways

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/ochairo/keg/internal/domain/entities"
)

// PlatformDetector reports the host OS and architecture from the Go runtime,
// enriched with distribution details from gopsutil
type PlatformDetector struct {
	goos   string
	goarch string
}

// NewPlatformDetector creates a detector for the running host
func NewPlatformDetector() *PlatformDetector {
	return &PlatformDetector{goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// Detect returns host information. Distribution and kernel details are best
// effort; a failed lookup leaves them empty. Only cancellation is an error.
func (d *PlatformDetector) Detect(ctx context.Context) (*entities.HostInfo, error) {
	info := &entities.HostInfo{
		OS:   d.goos,
		Arch: d.goarch,
	}

	// gopsutil only describes the machine it runs on
	if d.goos != runtime.GOOS {
		return info, nil
	}

	platform, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}
	info.Platform = strings.ToLower(strings.TrimSpace(platform))
	info.PlatformVersion = strings.TrimSpace(version)

	if kernel, err := host.KernelVersionWithContext(ctx); err == nil {
		info.KernelVersion = strings.TrimSpace(kernel)
	}

	return info, nil
}
