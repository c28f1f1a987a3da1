package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled-start relations between services",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add [trigger] [target]",
	Short: "Start target once trigger reaches started",
	Args:  cobra.ExactArgs(2),
	RunE:  runScheduleAdd,
}

var scheduleClearCmd = &cobra.Command{
	Use:   "clear [trigger] [target]",
	Short: "Remove a scheduled-start relation, or empty trigger's whole schedule if target is omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runScheduleClear,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list [trigger]",
	Short: "List services scheduled to start when trigger does",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleList,
}

func init() {
	scheduleCmd.AddCommand(scheduleAddCmd, scheduleClearCmd, scheduleListCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	if err := runtime.State().ScheduleStart(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s will start %s\n", args[0], args[1])
	return nil
}

func runScheduleClear(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if err := runtime.State().ScheduleClear(args[0]); err != nil {
			return err
		}
		fmt.Printf("cleared all schedules triggered by %s\n", args[0])
		return nil
	}
	if err := runtime.State().ClearSchedule(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("cleared %s -> %s\n", args[0], args[1])
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	targets, err := runtime.State().ScheduledBy(args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"trigger": args[0], "targets": targets})
	}
	for _, t := range targets {
		fmt.Println(t)
	}
	return nil
}
