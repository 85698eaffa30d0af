package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aurelia/sfc-vite/internal/plugin"
	"github.com/aurelia/sfc-vite/internal/types"
)

var buildOutDir string

var buildCmd = &cobra.Command{
	Use:     "build [paths...]",
	Aliases: []string{"b"},
	Short:   "Compile component files to modules and stylesheets on disk",
	Long: `Compile every .au file under the project root (or the given paths) into
a .js module and, when the component has style sections, a companion .css
file. Output lands next to each source file unless --out is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		p := plugin.New(cfg, plugin.WithLogger(logger))
		defer p.Close()

		targets := args
		if len(targets) == 0 {
			root, err := cfg.AbsRoot()
			if err != nil {
				return err
			}
			targets = []string{root}
		}

		files, err := collectComponents(targets)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no %s files found", types.ComponentExt)
		}

		ctx := context.Background()
		for _, file := range files {
			if err := buildOne(ctx, p, file); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "compiled %d component(s)\n", len(files))
		return nil
	},
}

// collectComponents expands files and directories into the set of component
// files to build.
func collectComponents(targets []string) ([]string, error) {
	var files []string

	for _, target := range targets {
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.HasSuffix(abs, types.ComponentExt) {
				files = append(files, abs)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if base := filepath.Base(path); strings.HasPrefix(base, ".") && path != abs {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, types.ComponentExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// buildOne compiles one component to disk: <name>.js always, <name>.au.css
// when the stylesheet is non-empty.
func buildOne(ctx context.Context, p *plugin.Plugin, file string) error {
	module, _, err := p.Load(ctx, types.VirtualID(file))
	if err != nil {
		return err
	}

	stylesheet, _, err := p.Load(ctx, types.VirtualStyleID(file))
	if err != nil {
		return err
	}

	outDir := filepath.Dir(file)
	if buildOutDir != "" {
		outDir = buildOutDir
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
	}

	base := strings.TrimSuffix(filepath.Base(file), types.ComponentExt)
	if err := os.WriteFile(filepath.Join(outDir, base+".js"), []byte(module), 0o644); err != nil {
		return err
	}
	if stylesheet != "" {
		cssName := filepath.Base(file) + ".css"
		if err := os.WriteFile(filepath.Join(outDir, cssName), []byte(stylesheet), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutDir, "out", "o", "", "output directory (default: next to each source file)")

	rootCmd.AddCommand(buildCmd)
}
