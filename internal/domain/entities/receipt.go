package entities

import "time"

// InstallReceipt records what a successful install produced
type InstallReceipt struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Tag          string    `json:"tag"`
	Revision     string    `json:"revision"`
	Platform     string    `json:"platform"`
	Triple       string    `json:"triple"`
	BinaryPath   string    `json:"binary_path"`
	SHA256       string    `json:"sha256"`
	BinaryFormat string    `json:"binary_format,omitempty"`
	BinaryArch   string    `json:"binary_arch,omitempty"`
	Host         HostInfo  `json:"host"`
	InstalledAt  time.Time `json:"installed_at"`
}
