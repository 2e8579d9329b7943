package themes

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/getgauge/common"
	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/logger"
)

//go:embed assets
var builtin embed.FS

// Manager handles theme management
type Manager struct {
	config *config.Config
}

// NewManager creates a new theme manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{config: cfg}
}

// CopyAssets writes the built-in stylesheet and script into outputDir, then
// mirrors the assets of the configured theme over them
func (m *Manager) CopyAssets(outputDir string) error {
	if err := writeBuiltin(outputDir); err != nil {
		return err
	}

	if m.config.ThemePath == "" {
		return nil
	}

	assetsPath := filepath.Join(m.getThemePath(m.config.ThemePath), "assets")
	if !common.DirExists(assetsPath) {
		logger.Warnf("Theme %s has no assets directory, using built-in theme", m.config.ThemePath)
		return nil
	}

	if _, err := common.MirrorDir(assetsPath, outputDir); err != nil {
		return fmt.Errorf("failed to copy theme assets: %w", err)
	}
	return nil
}

func writeBuiltin(outputDir string) error {
	root, err := fs.Sub(builtin, "assets")
	if err != nil {
		return err
	}

	return fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(outputDir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		data, err := fs.ReadFile(root, path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	})
}

// getThemePath returns the full path to a theme
func (m *Manager) getThemePath(themeName string) string {
	if filepath.IsAbs(themeName) {
		return themeName
	}

	// Check in project themes directory
	projectThemes := filepath.Join("themes", themeName)
	if common.DirExists(projectThemes) {
		return projectThemes
	}

	return themeName
}
