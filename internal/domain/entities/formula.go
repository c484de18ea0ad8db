package entities

import (
	"path/filepath"
	"strings"
)

// Formula represents a package formula loaded from YAML
type Formula struct {
	Name        string
	Description string
	Homepage    string
	Version     string
	Source      FormulaSource
	DependsOn   []Dependency
	Build       FormulaBuild
	Install     FormulaInstall
	Test        FormulaTest
}

// FormulaSource pins the upstream source revision
type FormulaSource struct {
	URL        string
	Using      string // only "git" is supported
	Tag        string
	Revision   string
	SigningKey string // armored OpenPGP public key used to verify the tag
}

// Dependency declares another tool the formula needs
type Dependency struct {
	Name string
	Type string // "build" or "runtime"
}

// FormulaBuild describes how the external build orchestrator is invoked
type FormulaBuild struct {
	System       string // "bazel" or "go"
	Target       string // bazel target label, e.g. cmd:apiserver-builder
	Package      string // go package path for the go build system
	PlatformFlag string // flag template, {triple} is substituted
	Platforms    map[Platform]string
	Archive      string // archive produced by the build, relative to the source dir
	Timeout      int    // minutes, 0 means no limit
}

// FormulaInstall describes what gets copied into the install prefix
type FormulaInstall struct {
	Binary string // path inside the extracted archive, e.g. bin/apiserver-boot
}

// FormulaTest describes the post-install smoke test
type FormulaTest struct {
	Args []string
}

// BuildDependencies returns the names of dependencies needed at build time
func (f *Formula) BuildDependencies() []string {
	var names []string
	for _, dep := range f.DependsOn {
		if dep.Type == "" || dep.Type == "build" {
			names = append(names, dep.Name)
		}
	}
	return names
}

// ExecutableName returns the file name of the installed executable
func (f *Formula) ExecutableName() string {
	bin := f.Install.Binary
	if i := strings.LastIndex(bin, "/"); i >= 0 {
		return bin[i+1:]
	}
	return bin
}

// TargetFor returns the target triple for the platform and whether it is declared
func (f *Formula) TargetFor(p Platform) (BuildTarget, bool) {
	triple, ok := f.Build.Platforms[p]
	if !ok || triple == "" {
		return BuildTarget{}, false
	}
	return BuildTarget{Platform: p, Triple: triple}, true
}

// DefaultPrefix returns <cellar>/<name>/<version>
func (f *Formula) DefaultPrefix(cellar string) string {
	return filepath.Join(cellar, f.Name, f.Version)
}

// BinaryPath returns where the executable lives under prefix
func (f *Formula) BinaryPath(prefix string) string {
	return filepath.Join(prefix, "bin", f.ExecutableName())
}
