package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"embedd/internal/common/fsutil"
	"embedd/pkg/types"
)

// quantPattern matches llama.cpp quantization suffixes such as Q8_0, Q4_K_M, F16.
var quantPattern = regexp.MustCompile(`(?i)^(q\d+(_[a-z0-9]+)*|f16|f32|bf16)$`)

// GGUFScanner discovers *.gguf embedding models in a directory.
type GGUFScanner struct{}

// NewGGUFScanner returns a scanner for *.gguf files.
func NewGGUFScanner() GGUFScanner { return GGUFScanner{} }

// Scan lists *.gguf files in dir (non-recursive). ID is the full filename;
// Name and Quant are derived from "<name>.<quant>.gguf" when present.
func (GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := e.Name()
		if !strings.HasSuffix(strings.ToLower(id), ".gguf") {
			continue
		}
		name, quant := splitName(id)
		models = append(models, types.Model{ID: id, Name: name, Path: filepath.Join(abs, id), Quant: quant})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// Lookup resolves a model identifier against the registry. It accepts the
// file name, the absolute path, the derived name, or a hub-style identifier
// ("org/name") whose last segment matches a derived name case-insensitively.
func Lookup(models []types.Model, id string) (types.Model, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Model{}, false
	}
	for _, m := range models {
		if m.ID == id || m.Path == id || m.Name == id {
			return m, true
		}
	}
	short := id
	if i := strings.LastIndex(short, "/"); i >= 0 {
		short = short[i+1:]
	}
	for _, m := range models {
		if strings.EqualFold(m.Name, short) {
			return m, true
		}
	}
	return types.Model{}, false
}

func splitName(file string) (name, quant string) {
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	if i := strings.LastIndex(stem, "."); i > 0 && quantPattern.MatchString(stem[i+1:]) {
		return stem[:i], strings.ToUpper(stem[i+1:])
	}
	return stem, ""
}
