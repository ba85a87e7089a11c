package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspects and clears a state's artifact cache.",
}

var cacheListCmd = &cobra.Command{
	Use:   "list --state <st> [--datefilter <yyyymmdd>]",
	Short: "Lists cached artifacts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := requireState()
		if err != nil {
			return err
		}
		pctx, err := newPipelineContext()
		if err != nil {
			return err
		}
		names, err := pctx.CacheFor(state).List(*datefilter)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear --state <st> [--datefilter <yyyymmdd>]",
	Short: "Removes cached artifacts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := requireState()
		if err != nil {
			return err
		}
		pctx, err := newPipelineContext()
		if err != nil {
			return err
		}
		n, err := pctx.CacheFor(state).Clear(*datefilter)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d artifact(s)\n", n)
		return nil
	},
}
