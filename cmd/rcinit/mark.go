package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openrc-go/rcsvc/internal/svcstate"
)

var markCmd = &cobra.Command{
	Use:   "mark [service] [state]",
	Short: "Set or clear a service state or orthogonal marker directly",
	Args:  cobra.ExactArgs(2),
	RunE:  runMark,
}

var markClear bool

func init() {
	markCmd.Flags().BoolVar(&markClear, "clear", false, "clear the marker instead of setting it (orthogonal markers only)")
	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	name, state := args[0], svcstate.State(args[1])
	if markClear {
		if err := runtime.State().Clear(name, state); err != nil {
			return fmt.Errorf("clearing %s on %s: %w", state, name, err)
		}
		fmt.Printf("%s: cleared %s\n", name, state)
		return nil
	}
	if err := runtime.State().Mark(name, state); err != nil {
		return fmt.Errorf("marking %s as %s: %w", name, state, err)
	}
	fmt.Printf("%s: marked %s\n", name, state)
	return nil
}

var statusCmdSingle = &cobra.Command{
	Use:   "state [service]",
	Short: "Print a service's current exclusive state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateQuery,
}

func init() {
	rootCmd.AddCommand(statusCmdSingle)
}

func runStateQuery(cmd *cobra.Command, args []string) error {
	state, err := runtime.State().CurrentState(args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]string{"service": args[0], "state": string(state)})
	}
	fmt.Println(state)
	return nil
}
