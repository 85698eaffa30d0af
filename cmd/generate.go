package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aurelia/sfc-vite/internal/types"
)

var generateDir string

var generateCmd = &cobra.Command{
	Use:     "generate <name>",
	Aliases: []string{"g"},
	Short:   "Scaffold a new single-file component",
	Long: `Create a new .au component file with template, script and scoped style
sections. The name may be given in kebab-case; the class identifier is
derived from it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		name = strings.TrimSuffix(name, types.ComponentExt)

		fileName := name + types.ComponentExt
		path := filepath.Join(generateDir, fileName)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		content := componentScaffold(name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
		return nil
	},
}

// className converts a kebab-case component name into a class identifier,
// e.g. "user-card" -> "UserCard".
func className(name string) string {
	titler := cases.Title(language.English)

	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, part := range parts {
		parts[i] = titler.String(part)
	}

	return strings.Join(parts, "")
}

func componentScaffold(name string) string {
	class := className(name)

	return fmt.Sprintf(`<template>
  <div class="%[1]s">${message}</div>
</template>

<script>
export default class %[2]s {
  message = '%[1]s works';
}
</script>

<style scoped>
.%[1]s {
  display: block;
}
</style>
`, name, class)
}

func init() {
	generateCmd.Flags().StringVarP(&generateDir, "dir", "d", ".", "directory to create the component in")

	rootCmd.AddCommand(generateCmd)
}
