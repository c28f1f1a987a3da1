package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runlevelCmd = &cobra.Command{
	Use:   "runlevel [name]",
	Short: "Show or change the active runlevel",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRunlevel,
}

func init() {
	rootCmd.AddCommand(runlevelCmd)
}

func runRunlevel(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		level, err := runtime.Runlevels().Get()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]string{"runlevel": level})
		}
		fmt.Println(level)
		return nil
	}

	result, err := runtime.TransitionTo(cmd.Context(), args[0])
	if jsonOut {
		printJSON(result)
		if err != nil {
			return fmt.Errorf("transition failed")
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("transitioning to %s: %w", args[0], err)
	}
	for _, name := range result.Stopped {
		fmt.Printf("stopped %s\n", name)
	}
	for _, name := range result.Started {
		fmt.Printf("started %s\n", name)
	}
	for _, edge := range result.BrokenCycles {
		fmt.Printf("warning: broke dependency cycle at %s -> %s\n", edge[0], edge[1])
	}
	return nil
}
