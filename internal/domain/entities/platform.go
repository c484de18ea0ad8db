package entities

import "strings"

// Platform is a host operating system the formula can be built on
type Platform string

// Recognized platforms
const (
	PlatformMacOS Platform = "macos"
	PlatformLinux Platform = "linux"
)

// PlatformFromGOOS maps a GOOS value to a recognized platform.
// The second return value is false for anything other than darwin or linux.
func PlatformFromGOOS(goos string) (Platform, bool) {
	switch goos {
	case "darwin":
		return PlatformMacOS, true
	case "linux":
		return PlatformLinux, true
	default:
		return "", false
	}
}

// BuildTarget is a platform paired with the triple handed to the builder
type BuildTarget struct {
	Platform Platform
	Triple   string
}

// GOOS returns the OS half of the triple (darwin_amd64 -> darwin)
func (t BuildTarget) GOOS() string {
	goos, _, _ := strings.Cut(t.Triple, "_")
	return goos
}

// GOARCH returns the architecture half of the triple (darwin_amd64 -> amd64)
func (t BuildTarget) GOARCH() string {
	_, goarch, ok := strings.Cut(t.Triple, "_")
	if !ok {
		return ""
	}
	return goarch
}

// HostInfo describes the machine keg runs on
type HostInfo struct {
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	Platform        string `json:"platform,omitempty"` // distribution or product name, e.g. ubuntu, darwin
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
}
