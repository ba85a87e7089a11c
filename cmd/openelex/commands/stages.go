package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"openelex-backend/internal/fetch"
	"openelex-backend/internal/load"
	"openelex-backend/internal/transform"
	"openelex-backend/internal/validate"
)

var (
	datefilter *string
	overwrite  *bool
	filename   *string
	include    *[]string
	exclude    *[]string
	reverse    *bool
)

func init() {
	datefilter = rootCmd.PersistentFlags().String("datefilter", "", "Restrict to elections matching YYYY, YYYYMM or YYYYMMDD.")
	overwrite = fetchCmd.Flags().Bool("overwrite", false, "Refetch artifacts that are already cached.")
	filename = loadCmd.Flags().String("filename", "", "Load only this generated source filename.")
	include = transformCmd.Flags().StringSlice("include", nil, "Run only these transforms.")
	exclude = transformCmd.Flags().StringSlice("exclude", nil, "Run everything but these transforms.")
	reverse = transformCmd.Flags().Bool("reverse", false, "Undo transforms instead of running them.")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch --state <st> [--datefilter <yyyymmdd>] [--overwrite]",
	Short: "Downloads a state's source artifacts into its cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := requireState()
		if err != nil {
			return err
		}
		pctx, err := newPipelineContext()
		if err != nil {
			return err
		}
		return fetch.Run(cmd.Context(), pctx, state, *datefilter, *overwrite)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load --state <st> [--datefilter <yyyymmdd>] [--filename <generated>]",
	Short: "Parses cached artifacts into raw result rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := requireState()
		if err != nil {
			return err
		}
		pctx, err := newPipelineContext()
		if err != nil {
			return err
		}
		return load.Run(cmd.Context(), pctx, state, *datefilter, *filename)
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform --state <st> [--include a,b | --exclude a,b] [--reverse]",
	Short: "Turns raw rows into canonical contests, candidates and results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := requireState()
		if err != nil {
			return err
		}
		pctx, err := newPipelineContext()
		if err != nil {
			return err
		}
		sel := transform.Selection{Include: *include, Exclude: *exclude}
		if *reverse {
			return transform.Reverse(cmd.Context(), pctx, state, sel)
		}
		return transform.Run(cmd.Context(), pctx, state, sel)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate --state <st>",
	Short: "Runs the state's registered validators and prints a summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := requireState()
		if err != nil {
			return err
		}
		pctx, err := newPipelineContext()
		if err != nil {
			return err
		}
		outcomes, err := validate.Run(cmd.Context(), pctx, state)
		if err != nil {
			return err
		}
		validate.Summary(os.Stdout, outcomes)
		if n := validate.Failed(outcomes); n > 0 {
			return fmt.Errorf("%d validator(s) failed", n)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run --state <st> [--datefilter <yyyymmdd>]",
	Short: "Runs fetch, load and transform back to back.",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := requireState()
		if err != nil {
			return err
		}
		pctx, err := newPipelineContext()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := fetch.Run(ctx, pctx, state, *datefilter, false); err != nil {
			return err
		}
		if err := load.Run(ctx, pctx, state, *datefilter, ""); err != nil {
			return err
		}
		return transform.Run(ctx, pctx, state, transform.Selection{})
	},
}
