package gateways

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/ochairo/keg/internal/domain/entities"
)

// DependencyChecker confirms that build dependencies are on PATH
type DependencyChecker struct {
	lookPath func(string) (string, error)
}

// NewDependencyChecker creates a checker that searches PATH
func NewDependencyChecker() *DependencyChecker {
	return &DependencyChecker{lookPath: exec.LookPath}
}

// CheckBuildDependencies returns ErrMissingDependency naming every build
// dependency that cannot be found
func (c *DependencyChecker) CheckBuildDependencies(f *entities.Formula) error {
	var missing []string
	for _, name := range f.BuildDependencies() {
		if _, err := c.lookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", entities.ErrMissingDependency, strings.Join(missing, ", "))
	}
	return nil
}
