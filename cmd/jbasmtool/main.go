// Command jbasmtool is a small illustrative CLI over jbasm's writer and
// reader packages: assemble a class from a JSON description, or dump a
// compiled one back to JSON. Grounded on saferwall-pe/cmd/pedumper.go's
// github.com/spf13/cobra root command plus dump subcommand, carried over
// verbatim in shape (persistent verbose flag, one subcommand per verb)
// and given a second subcommand for the write direction a bytecode
// assembler needs that a format parser like pedumper never did.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jbasm/src/jbtrace"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "jbasmtool",
		Short: "Assemble and inspect JVM class files",
		Long:  "jbasmtool assembles class files from a JSON description and dumps existing ones for inspection.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				jbtrace.SetLevel(jbtrace.TRACE)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace-level logging")

	rootCmd.AddCommand(newAssembleCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the tool version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("jbasmtool 0.1.0")
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
