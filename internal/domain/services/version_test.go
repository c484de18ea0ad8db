package services

import (
	"errors"
	"testing"

	"github.com/ochairo/keg/internal/domain/entities"
)

func TestVersionFromTag(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"v1.18.0", "1.18.0"},
		{"1.18.0", "1.18.0"},
		{"v2.0.0-beta.1", "2.0.0-beta.1"},
		{"release-2020", "release-2020"},
	}

	for _, tt := range tests {
		if got := VersionFromTag(tt.tag); got != tt.want {
			t.Errorf("VersionFromTag(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestCheckVersionOutput(t *testing.T) {
	// apiserver-boot prints its version struct through the standard logger
	output := `2020/06/01 10:00:00 Version: version.Version{ApiserverBuilderVersion:"v1.18.0", KubernetesVendor:"1.18.4", GitCommit:"95dca1d34e91d6e76c50fa4f272a77f573fd7558", BuildDate:"2020-06-01-00:00:00", GoOs:"linux", GoArch:"amd64"}`

	if err := CheckVersionOutput(output, "1.18.0"); err != nil {
		t.Errorf("CheckVersionOutput() error = %v", err)
	}
	if err := CheckVersionOutput(output, "v1.18.0"); err != nil {
		t.Errorf("CheckVersionOutput() with v prefix error = %v", err)
	}

	err := CheckVersionOutput(output, "1.19.0")
	if !errors.Is(err, entities.ErrVersionMismatch) {
		t.Errorf("error = %v, want ErrVersionMismatch", err)
	}

	err = CheckVersionOutput(output, "")
	if !errors.Is(err, entities.ErrVersionMismatch) {
		t.Errorf("empty version error = %v, want ErrVersionMismatch", err)
	}
}
