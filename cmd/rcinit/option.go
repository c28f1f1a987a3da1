package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var optionCmd = &cobra.Command{
	Use:   "option",
	Short: "Get, set, list, or reset a service's persisted options",
}

var optionGetCmd = &cobra.Command{
	Use:   "get [service] [key]",
	Args:  cobra.ExactArgs(2),
	RunE:  runOptionGet,
}

var optionSetCmd = &cobra.Command{
	Use:   "set [service] [key] [value]",
	Args:  cobra.ExactArgs(3),
	RunE:  runOptionSet,
}

var optionListCmd = &cobra.Command{
	Use:   "list [service]",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptionList,
}

var optionResetCmd = &cobra.Command{
	Use:   "reset [service]",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptionReset,
}

func init() {
	optionCmd.AddCommand(optionGetCmd, optionSetCmd, optionListCmd, optionResetCmd)
	rootCmd.AddCommand(optionCmd)
}

func runOptionGet(cmd *cobra.Command, args []string) error {
	value, ok, err := runtime.State().GetOption(args[0], args[1])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"service": args[0], "key": args[1], "value": value, "set": ok})
	}
	if !ok {
		return fmt.Errorf("%s: no value set for %s", args[0], args[1])
	}
	fmt.Println(value)
	return nil
}

func runOptionSet(cmd *cobra.Command, args []string) error {
	if err := runtime.State().SetOption(args[0], args[1], args[2]); err != nil {
		return err
	}
	fmt.Printf("%s: %s=%s\n", args[0], args[1], args[2])
	return nil
}

func runOptionList(cmd *cobra.Command, args []string) error {
	keys, err := runtime.State().Options(args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"service": args[0], "keys": keys})
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

func runOptionReset(cmd *cobra.Command, args []string) error {
	if err := runtime.State().ResetOptions(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s: options reset\n", args[0])
	return nil
}
