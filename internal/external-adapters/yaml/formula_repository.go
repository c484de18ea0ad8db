package yaml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ochairo/keg/internal/domain/entities"
	"github.com/ochairo/keg/internal/domain/interfaces"
)

// FormulaRepository implements repositories.FormulaRepository over the
// built-in formula FS, optionally overlaid by a directory of .yml files
type FormulaRepository struct {
	builtin    fs.FS
	formulaDir string
	parser     *FormulaParser
	logger     interfaces.Logger
}

// NewFormulaRepository creates a YAML-based formula repository. Files in
// formulaDir take precedence over built-in formulas of the same name;
// formulaDir may be empty.
func NewFormulaRepository(builtin fs.FS, formulaDir string, parser *FormulaParser, logger interfaces.Logger) *FormulaRepository {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &FormulaRepository{
		builtin:    builtin,
		formulaDir: formulaDir,
		parser:     parser,
		logger:     logger,
	}
}

// GetFormula retrieves a formula by name
func (r *FormulaRepository) GetFormula(_ context.Context, name string) (*entities.Formula, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: invalid name %q", entities.ErrFormulaNotFound, name)
	}
	fileName := name + ".yml"

	if r.formulaDir != "" {
		filePath := filepath.Join(r.formulaDir, fileName)
		if _, err := os.Stat(filePath); err == nil {
			f, err := r.parser.ParseFile(filePath)
			if err != nil {
				return nil, err
			}
			if err := checkName(fileName, f); err != nil {
				return nil, err
			}
			return f, nil
		}
	}

	if r.builtin != nil {
		data, err := fs.ReadFile(r.builtin, fileName)
		if err == nil {
			f, err := r.parser.Parse(fileName, data)
			if err != nil {
				return nil, err
			}
			if err := checkName(fileName, f); err != nil {
				return nil, err
			}
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read built-in formula %s: %w", name, err)
		}
	}

	return nil, fmt.Errorf("%w: %s", entities.ErrFormulaNotFound, name)
}

// ListFormulas returns all available formulas sorted by name. Files that fail
// to parse are skipped with a warning.
func (r *FormulaRepository) ListFormulas(_ context.Context) ([]*entities.Formula, error) {
	byName := make(map[string]*entities.Formula)

	if r.builtin != nil {
		entries, err := fs.ReadDir(r.builtin, ".")
		if err != nil {
			return nil, fmt.Errorf("failed to read built-in formulas: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || path.Ext(entry.Name()) != ".yml" {
				continue
			}
			data, err := fs.ReadFile(r.builtin, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("failed to read built-in formula %s: %w", entry.Name(), err)
			}
			r.add(byName, entry.Name(), func() (*entities.Formula, error) {
				return r.parser.Parse(entry.Name(), data)
			})
		}
	}

	if r.formulaDir != "" {
		entries, err := os.ReadDir(r.formulaDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read formula directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".yml" {
				continue
			}
			filePath := filepath.Join(r.formulaDir, entry.Name())
			r.add(byName, entry.Name(), func() (*entities.Formula, error) {
				return r.parser.ParseFile(filePath)
			})
		}
	}

	formulas := make([]*entities.Formula, 0, len(byName))
	for _, f := range byName {
		formulas = append(formulas, f)
	}
	sort.Slice(formulas, func(i, j int) bool { return formulas[i].Name < formulas[j].Name })
	return formulas, nil
}

func (r *FormulaRepository) add(byName map[string]*entities.Formula, file string, parse func() (*entities.Formula, error)) {
	f, err := parse()
	if err == nil {
		err = checkName(file, f)
	}
	if err != nil {
		r.logger.Warn("skipping formula", interfaces.F("file", file), interfaces.F("error", err))
		return
	}
	byName[f.Name] = f
}

// checkName rejects a formula whose name differs from its file's base name,
// so lookup by name and listing agree
func checkName(file string, f *entities.Formula) error {
	want := strings.TrimSuffix(path.Base(filepath.ToSlash(file)), ".yml")
	if f.Name != want {
		return fmt.Errorf("formula %s declares name %q, want %q", file, f.Name, want)
	}
	return nil
}
