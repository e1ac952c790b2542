package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"parsersmith/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default parsersmith.yaml and the data/ and custom_parsers/ directories",
	Long: `Creates the workspace layout and a parsersmith.yaml holding the default
settings. The API key is never written; set GEMINI_API_KEY in the
environment or in .env instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.OutOrStdout(), initForce)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(w io.Writer, force bool) error {
	path := configPath
	if path == "" {
		path = filepath.Join(workspace, config.DefaultConfigFile)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	c := config.DefaultConfig()
	if err := c.Save(path); err != nil {
		return err
	}
	for _, dir := range []string{c.DataDir(workspace), c.ParsersDir(workspace)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	fmt.Fprintf(w, "%s %s\n", okStyle.Render("wrote"), path)
	fmt.Fprintf(w, "%s put statements in %s/<id>/<id>_sample.pdf with a matching _sample.csv\n",
		dimStyle.Render("next:"), c.DataDir(workspace))
	return nil
}
