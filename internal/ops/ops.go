package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/brushport/internal/bundle"
	"github.com/hpungsan/brushport/internal/config"
	"github.com/hpungsan/brushport/internal/errors"
)

// TemplateFileName is the template looked for next to the executable and in
// the base directory.
const TemplateFileName = "Seed.brush"

const dirPerm = 0755

// ResolveTemplate picks the template path. Order: explicit flag, config
// template_path, <exe dir>/Seed.brush, <baseDir>/Seed.brush. An explicit
// path that does not exist is an error rather than a fallthrough.
func ResolveTemplate(flagPath string, cfg *config.Config, baseDir string) (string, error) {
	explicit := []string{flagPath}
	if cfg != nil {
		explicit = append(explicit, cfg.TemplatePath)
	}
	for _, p := range explicit {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if isFile(p) {
			return p, nil
		}
		return "", errors.NewInvalidTemplate(fmt.Sprintf("template not found: %s", p), nil)
	}

	var searched []string
	if exe, err := os.Executable(); err == nil {
		searched = append(searched, filepath.Join(filepath.Dir(exe), TemplateFileName))
	}
	if baseDir != "" {
		searched = append(searched, filepath.Join(baseDir, TemplateFileName))
	}
	for _, p := range searched {
		if isFile(p) {
			return p, nil
		}
	}

	err := errors.NewInvalidTemplate(
		fmt.Sprintf("no %s found (searched %s); pass --template or set template_path", TemplateFileName, strings.Join(searched, ", ")), nil)
	err.Details = map[string]any{"searched": searched}
	return "", err
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SourceStem returns the input file name without extension, safe for use
// in output names.
func SourceStem(path string) string {
	base := filepath.Base(path)
	return bundle.SanitizeForFilename(strings.TrimSuffix(base, filepath.Ext(base)))
}

// BrushName returns the file name and display name of the brush at index
// (0-based) out of total. A lone brush takes the bare stem; otherwise names
// are numbered from 1.
func BrushName(stem string, index, total int) (file, display string) {
	if total == 1 {
		return stem + bundle.BrushExt, stem
	}
	n := index + 1
	return fmt.Sprintf("%s_%d%s", stem, n, bundle.BrushExt), fmt.Sprintf("%s %d", stem, n)
}
