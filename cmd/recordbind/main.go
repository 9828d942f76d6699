package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recordbind",
		Short: "recordbind - concurrent, order-preserving CSV binding",
		Long: `recordbind converts delimited records to typed objects and back on a
bounded worker pool, keeping input order and reporting per-record errors
with their source line.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "Path to a recordbind YAML config file")
	root.PersistentFlags().String("env-file", "", "Path to a .env file")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newExportCmd())
	return root
}
