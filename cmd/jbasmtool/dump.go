package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jbasm/src/jbreader"
	"jbasm/src/roundtrip"
)

func newDumpCmd() *cobra.Command {
	var checkRoundtrip bool
	cmd := &cobra.Command{
		Use:   "dump <class-file>",
		Short: "Parse a class file and print its structure as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0], checkRoundtrip)
		},
	}
	cmd.Flags().BoolVar(&checkRoundtrip, "check-roundtrip", false, "also replay the class through a paired ClassWriter and report discrepancies")
	return cmd
}

func runDump(path string, checkRoundtrip bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := jbreader.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	out, err := json.MarshalIndent(r.Summary(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if checkRoundtrip {
		rep, err := roundtrip.Check(path, data)
		if err != nil {
			return err
		}
		repJSON, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(repJSON))
	}
	return nil
}
