package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openrc-go/rcsvc/rc"
)

var version = "dev"

var (
	rootDir string
	jsonOut bool
	runtime *rc.Runtime
)

var rootCmd = &cobra.Command{
	Use:   "rcinit",
	Short: "OpenRC-style service and runlevel driver",
	Long: `rcinit drives service start/stop and runlevel transitions on top of
the rcsvc dependency engine and state store.`,
	Version:           version,
	PersistentPreRunE: openRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if runtime != nil {
			runtime.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "rcsvc root directory (default /etc/rcsvc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
}

func openRuntime(cmd *cobra.Command, args []string) error {
	rt, err := rc.New(rootDir)
	if err != nil {
		return fmt.Errorf("opening runtime: %w", err)
	}
	runtime = rt
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
