// Package yaml provides YAML-based formula parsing and repository implementations.
package yaml

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/keg/internal/domain/entities"
	"github.com/ochairo/keg/internal/domain/services"
)

// yamlFormula represents the raw YAML structure
type yamlFormula struct {
	Name      string           `yaml:"name"`
	Desc      string           `yaml:"desc"`
	Homepage  string           `yaml:"homepage"`
	Version   string           `yaml:"version"`
	Source    yamlSource       `yaml:"source"`
	DependsOn []yamlDependency `yaml:"depends_on"`
	Build     yamlBuild        `yaml:"build"`
	Install   yamlInstall      `yaml:"install"`
	Test      yamlTest         `yaml:"test"`
}

type yamlSource struct {
	URL        string `yaml:"url"`
	Using      string `yaml:"using"`
	Tag        string `yaml:"tag"`
	Revision   string `yaml:"revision"`
	SigningKey string `yaml:"signing_key"`
}

type yamlDependency struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type yamlBuild struct {
	System         string            `yaml:"system"`
	Target         string            `yaml:"target"`
	Package        string            `yaml:"package"`
	PlatformFlag   string            `yaml:"platform_flag"`
	Platforms      map[string]string `yaml:"platforms"`
	Archive        string            `yaml:"archive"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
}

type yamlInstall struct {
	Binary string `yaml:"binary"`
}

type yamlTest struct {
	Args []string `yaml:"args"`
}

// SchemaValidator checks a YAML document before it is decoded
type SchemaValidator interface {
	ValidateYAML(document string, data []byte) error
}

// FormulaParser parses YAML formula files
type FormulaParser struct {
	validator SchemaValidator
}

// NewFormulaParser creates a new YAML parser. A nil validator skips schema
// validation and only the structural checks in Parse apply.
func NewFormulaParser(validator SchemaValidator) *FormulaParser {
	return &FormulaParser{validator: validator}
}

// ParseFile parses a YAML formula file into a Formula entity
func (p *FormulaParser) ParseFile(filePath string) (*entities.Formula, error) {
	//nolint:gosec // G304: filePath is a formula path from the repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(filepath.Base(filePath), data)
}

// Parse parses YAML bytes into a Formula entity. document names the source
// in error messages.
func (p *FormulaParser) Parse(document string, data []byte) (*entities.Formula, error) {
	if p.validator != nil {
		if err := p.validator.ValidateYAML(document, data); err != nil {
			return nil, err
		}
	}

	var yf yamlFormula
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&yf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", document, err)
	}

	// Validate required fields
	if yf.Name == "" {
		return nil, fmt.Errorf("formula %s must have a name", document)
	}
	if yf.Install.Binary == "" {
		return nil, fmt.Errorf("formula %s must declare install.binary", yf.Name)
	}
	if yf.Source.Using != "" && yf.Source.Using != "git" {
		return nil, fmt.Errorf("formula %s: unsupported source type %q", yf.Name, yf.Source.Using)
	}

	version := yf.Version
	if version == "" {
		version = services.VersionFromTag(yf.Source.Tag)
	}

	return &entities.Formula{
		Name:        yf.Name,
		Description: yf.Desc,
		Homepage:    yf.Homepage,
		Version:     version,
		Source:      convertSource(yf.Source),
		DependsOn:   convertDependencies(yf.DependsOn),
		Build:       convertBuild(yf.Build),
		Install:     entities.FormulaInstall{Binary: yf.Install.Binary},
		Test:        entities.FormulaTest{Args: yf.Test.Args},
	}, nil
}

func convertSource(ys yamlSource) entities.FormulaSource {
	using := ys.Using
	if using == "" {
		using = "git"
	}
	return entities.FormulaSource{
		URL:        ys.URL,
		Using:      using,
		Tag:        ys.Tag,
		Revision:   ys.Revision,
		SigningKey: ys.SigningKey,
	}
}

func convertDependencies(deps []yamlDependency) []entities.Dependency {
	out := make([]entities.Dependency, 0, len(deps))
	for _, d := range deps {
		out = append(out, entities.Dependency{Name: d.Name, Type: d.Type})
	}
	return out
}

func convertBuild(yb yamlBuild) entities.FormulaBuild {
	platforms := make(map[entities.Platform]string, len(yb.Platforms))
	for name, triple := range yb.Platforms {
		platforms[entities.Platform(name)] = triple
	}

	system := yb.System
	if system == "" {
		system = "bazel"
	}

	return entities.FormulaBuild{
		System:       system,
		Target:       yb.Target,
		Package:      yb.Package,
		PlatformFlag: yb.PlatformFlag,
		Platforms:    platforms,
		Archive:      yb.Archive,
		Timeout:      yb.TimeoutMinutes,
	}
}
