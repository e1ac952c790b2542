package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"parsersmith/internal/extract"
	"parsersmith/internal/prompt"
	"parsersmith/internal/sample"
)

var inspectTarget string

var inspectCmd = &cobra.Command{
	Use:   "inspect [id]",
	Short: "Show the extracted text, reference schema and first prompt",
	Long: `Prints what the model would see on the first attempt without calling
it: the text excerpt, the reference schema with its detected dialect, and
the full prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := targetID(inspectTarget, args)
		if err != nil {
			return err
		}
		return runInspect(cmd.OutOrStdout(), id)
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectTarget, "target", "t", "", "Bank id (directory under data/)")
}

func runInspect(w io.Writer, id string) error {
	layout := cfg.LayoutFor(workspace, id)
	for _, p := range []string{layout.PDFPath, layout.ReferencePath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("missing input: %s", p)
		}
	}

	res := extract.Extract(layout.PDFPath)
	if err := res.Err(); err != nil {
		return err
	}
	_, schema, err := sample.Analyze(layout.ReferencePath, cfg.Synthesis.PreviewRows)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", layout.ReferencePath, err)
	}

	fmt.Fprintln(w, titleStyle.Render("excerpt"))
	fmt.Fprintln(w, res.Excerpt(cfg.Synthesis.SampleChars))
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render("schema"))
	fmt.Fprintf(w, "shape: (%d, %d)\n", schema.RowCount, len(schema.Columns))
	for _, c := range schema.Columns {
		fmt.Fprintf(w, "  %-20s %s\n", c, schema.Type(c))
	}
	d := schema.Dialect
	fmt.Fprintf(w, "dates: %s  day-first: %t\n", d.DateFormat, d.DayFirst)
	fmt.Fprintln(w)

	builder := prompt.NewBuilder(cfg.Synthesis.SampleChars, cfg.Synthesis.PreviewRows)
	text := builder.Build(prompt.Request{BankID: id, SampleText: res.Text, Schema: schema})
	fmt.Fprintln(w, titleStyle.Render("prompt"))
	fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	return nil
}
