package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/report"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abLoad   loadFlags
	abOutDir string
	abJobs   int
	abQuiet  bool
)

type batchResult struct {
	path    string
	outFile string
	summary string
	warned  bool
	err     error
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently and write one Markdown report each",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		if abJobs <= 0 {
			abJobs = 1
		}

		// reserve output names up front so same-named inputs never collide
		outFiles := batchOutputs(files, abOutDir)

		results := make([]batchResult, len(files))
		// one session per file; a failure never cancels the others
		var g errgroup.Group
		g.SetLimit(abJobs)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				results[i] = analyzeOne(path, outFiles[i])
				return nil
			})
		}
		_ = g.Wait()

		var failed []string
		total := len(files)
		for i, r := range results {
			switch {
			case r.err != nil:
				failed = append(failed, filepath.Base(r.path))
				fmt.Fprintf(out, "[%d/%d] ✗ %s: %v\n", i+1, total, r.path, r.err)
			case !abQuiet:
				fmt.Fprintf(out, "[%d/%d] ✓ %s → %s (%s)\n", i+1, total, r.path, r.outFile, r.summary)
				if r.warned {
					fmt.Fprintf(out, "      ⚠ possible column shift; see the report\n")
				}
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d files failed: %s", len(failed), total, strings.Join(failed, ", "))
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops
// duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// batchOutputs names one report per input. Inputs sharing a base name get
// "__2", "__3" suffixes when written to a common directory.
func batchOutputs(files []string, outDir string) []string {
	out := make([]string, len(files))
	used := map[string]struct{}{}
	for i, path := range files {
		cand := utils.OutputPath(path, outDir, ".report.md")
		if _, err := os.Stat(cand); err == nil {
			used[cand] = struct{}{}
		}
		if _, ok := used[cand]; ok {
			base := strings.TrimSuffix(cand, ".report.md")
			for idx := 2; ; idx++ {
				next := fmt.Sprintf("%s__%d.report.md", base, idx)
				if _, ok := used[next]; ok {
					continue
				}
				if _, err := os.Stat(next); err == nil {
					continue
				}
				cand = next
				break
			}
		}
		used[cand] = struct{}{}
		out[i] = cand
	}
	return out
}

func analyzeOne(path, outFile string) batchResult {
	r := batchResult{path: path, outFile: outFile}
	sess, res, err := openSession(path, &abLoad)
	if err != nil {
		r.err = err
		return r
	}
	in, err := sess.Report()
	if err != nil {
		r.err = err
		return r
	}
	if err := utils.SafeWriteFile(outFile, []byte(report.Markdown(in))); err != nil {
		r.err = err
		return r
	}
	r.summary = fmt.Sprintf("%d rows × %d columns, %d hypotheses", res.Table.NumRows(), res.Table.NumCols(), len(in.Hypotheses))
	r.warned = res.Warning != nil
	return r
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abLoad.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for reports (default: next to each input)")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 4, "files analyzed concurrently")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
