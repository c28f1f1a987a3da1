package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openrc-go/rcsvc/internal/depquery"
)

var (
	orderDumpGraph bool
	orderStop      bool
)

var orderCmd = &cobra.Command{
	Use:   "order [runlevel]",
	Short: "Print the start (or stop) order for a runlevel",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrder,
}

func init() {
	orderCmd.Flags().BoolVar(&orderDumpGraph, "dump-graph", false, "dump the full resolved dependency graph as YAML instead of computing an order")
	orderCmd.Flags().BoolVar(&orderStop, "stop", false, "compute the stop order instead of the start order")
	rootCmd.AddCommand(orderCmd)
}

func runOrder(cmd *cobra.Command, args []string) error {
	graph, err := runtime.Graph(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}

	if orderDumpGraph {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(graph)
	}

	level := args[0]
	want, err := runtime.WantedServiceSet(level)
	if err != nil {
		return err
	}
	started, err := runtime.StartedServiceSet()
	if err != nil {
		return err
	}
	inactive, err := runtime.InactiveServiceSet()
	if err != nil {
		return err
	}

	var broken [][2]string
	report := func(cycle []string, edge [2]string) { broken = append(broken, edge) }
	stop, start, err := depquery.OrderServices(graph, want, started, inactive, depquery.Options{Stop: true, Start: true}, report)
	if err != nil {
		return fmt.Errorf("ordering %s: %w", level, err)
	}

	order := start
	if orderStop {
		order = stop
	}

	if jsonOut {
		return printJSON(map[string]any{"runlevel": level, "order": order, "broken_cycles": broken})
	}
	for _, name := range order {
		fmt.Println(name)
	}
	return nil
}
