package cmd

import (
	"fmt"

	"github.com/KaramelBytes/edaloom-cli/internal/hypothesis"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	hypLoad       loadFlags
	hypTarget     string
	hypFormat     string
	hypOutputPath string
	hypShowGaps   bool
)

var hypothesesCmd = &cobra.Command{
	Use:   "hypotheses <file>",
	Short: "Generate testable hypotheses and export them as JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		errOut := cmd.ErrOrStderr()
		sess, res, err := openSession(args[0], &hypLoad)
		if err != nil {
			return err
		}
		printLoad(errOut, res)

		gen, err := sess.Hypotheses(hypTarget)
		if err != nil {
			return err
		}
		if hypShowGaps {
			for _, g := range gen.Gaps {
				fmt.Fprintf(errOut, "⚠ skipped: %v\n", g)
			}
		}
		exported := hypothesis.ExportAll(gen.Hypotheses)
		if exported == nil {
			exported = []hypothesis.Export{}
		}
		body, err := utils.Encode(hypFormat, exported)
		if err != nil {
			return err
		}
		if hypOutputPath != "" {
			if err := utils.SafeWriteFile(hypOutputPath, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(errOut, "✓ Wrote %d hypotheses to %s\n", len(exported), hypOutputPath)
			return nil
		}
		_, err = out.Write(body)
		return err
	},
}

func init() {
	rootCmd.AddCommand(hypothesesCmd)
	hypLoad.register(hypothesesCmd)
	hypothesesCmd.Flags().StringVar(&hypTarget, "target", "", "target column (auto-detected if omitted)")
	hypothesesCmd.Flags().StringVar(&hypFormat, "format", "json", "export format: json | yaml")
	hypothesesCmd.Flags().StringVarP(&hypOutputPath, "output", "o", "", "optional path to write the export")
	hypothesesCmd.Flags().BoolVar(&hypShowGaps, "show-gaps", false, "list statistics that could not be computed")
}
