package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/report"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	repLoad       loadFlags
	repFormat     string
	repOutputPath string
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Write a full EDA report as HTML, PDF or Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		format := strings.ToLower(repFormat)
		switch format {
		case "html", "pdf", "md":
		default:
			return fmt.Errorf("unsupported --format: %s (use html|pdf|md)", repFormat)
		}
		sess, res, err := openSession(args[0], &repLoad)
		if err != nil {
			return err
		}
		printLoad(out, res)
		in, err := sess.Report()
		if err != nil {
			return err
		}

		var body []byte
		switch format {
		case "html":
			body = report.HTML(in)
		case "pdf":
			if body, err = report.PDF(in); err != nil {
				return err
			}
		case "md":
			body = []byte(report.Markdown(in))
		}
		path := repOutputPath
		if path == "" {
			path = utils.OutputPath(args[0], "", "_report."+format)
		}
		if err := utils.SafeWriteFile(path, body); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "✓ Wrote %s report to %s\n", strings.ToUpper(format), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	repLoad.register(reportCmd)
	reportCmd.Flags().StringVar(&repFormat, "format", "html", "report format: html | pdf | md")
	reportCmd.Flags().StringVarP(&repOutputPath, "output", "o", "", "report path (default: <input>_report.<format> next to the input)")
}
