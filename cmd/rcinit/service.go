package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [service]",
	Short: "Start a service",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop [service]",
	Short: "Stop a service",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

var coldplugCmd = &cobra.Command{
	Use:   "coldplug [service]",
	Short: "Mark a service coldplugged and start it",
	Args:  cobra.ExactArgs(1),
	RunE:  runColdplug,
}

func init() {
	rootCmd.AddCommand(startCmd, stopCmd, coldplugCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	res, err := runtime.StartService(cmd.Context(), args[0])
	if jsonOut {
		printJSON(map[string]any{"service": args[0], "ran": res.Ran, "output": res.Output, "error": errString(err)})
		if err != nil {
			return fmt.Errorf("start failed")
		}
		return nil
	}
	for _, line := range res.Output {
		fmt.Println(line)
	}
	if err != nil {
		return fmt.Errorf("starting %s: %w", args[0], err)
	}
	if !res.Ran {
		fmt.Printf("%s already started\n", args[0])
	} else {
		fmt.Printf("%s started\n", args[0])
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	res, err := runtime.StopService(cmd.Context(), args[0])
	if jsonOut {
		printJSON(map[string]any{"service": args[0], "ran": res.Ran, "output": res.Output, "error": errString(err)})
		if err != nil {
			return fmt.Errorf("stop failed")
		}
		return nil
	}
	for _, line := range res.Output {
		fmt.Println(line)
	}
	if err != nil {
		return fmt.Errorf("stopping %s: %w", args[0], err)
	}
	if !res.Ran {
		fmt.Printf("%s already stopped\n", args[0])
	} else {
		fmt.Printf("%s stopped\n", args[0])
	}
	return nil
}

func runColdplug(cmd *cobra.Command, args []string) error {
	_, err := runtime.ColdplugService(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("coldplugging %s: %w", args[0], err)
	}
	fmt.Printf("%s coldplugged\n", args[0])
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
