package gateways

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/ochairo/keg/internal/domain/entities"
)

func TestDependencyChecker_CheckBuildDependencies(t *testing.T) {
	tests := []struct {
		name      string
		deps      []entities.Dependency
		available map[string]bool
		wantErr   bool
		wantNamed []string
	}{
		{
			name:      "all present",
			deps:      []entities.Dependency{{Name: "bazel", Type: "build"}},
			available: map[string]bool{"bazel": true},
		},
		{
			name:      "missing build dependency",
			deps:      []entities.Dependency{{Name: "bazel", Type: "build"}, {Name: "go", Type: "build"}},
			available: map[string]bool{"go": true},
			wantErr:   true,
			wantNamed: []string{"bazel"},
		},
		{
			name:      "runtime dependencies are not checked",
			deps:      []entities.Dependency{{Name: "kubectl", Type: "runtime"}},
			available: map[string]bool{},
		},
		{
			name: "no dependencies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &DependencyChecker{lookPath: func(name string) (string, error) {
				if tt.available[name] {
					return "/usr/bin/" + name, nil
				}
				return "", exec.ErrNotFound
			}}

			err := c.CheckBuildDependencies(&entities.Formula{Name: "apiserver-boot", DependsOn: tt.deps})
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckBuildDependencies() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, entities.ErrMissingDependency) {
				t.Errorf("error = %v, want ErrMissingDependency", err)
			}
			for _, name := range tt.wantNamed {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("error %q does not name %s", err, name)
				}
			}
		})
	}
}

func TestDependencyChecker_RealPath(t *testing.T) {
	f := &entities.Formula{DependsOn: []entities.Dependency{{Name: "sh", Type: "build"}}}
	if err := NewDependencyChecker().CheckBuildDependencies(f); err != nil {
		t.Errorf("sh should be on PATH: %v", err)
	}

	f.DependsOn = []entities.Dependency{{Name: "keg-definitely-not-installed", Type: "build"}}
	if err := NewDependencyChecker().CheckBuildDependencies(f); !errors.Is(err, entities.ErrMissingDependency) {
		t.Errorf("error = %v, want ErrMissingDependency", err)
	}
}
