package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [dataset]",
	Short: "Print the reads a load would do",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kr, err := keyring(cmd)
		if err != nil {
			return err
		}
		db, _, err := openDatabase(args)
		if err != nil {
			return err
		}
		plan, err := db.Commands(kr)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(plan))
		for name := range plan {
			names = append(names, name)
		}
		sort.Strings(names)
		w := cmd.OutOrStdout()
		for _, name := range names {
			fmt.Fprintf(w, "filegroup %s:\n", name)
			for _, c := range plan[name] {
				fmt.Fprintln(w, c)
			}
		}
		return nil
	},
}

func init() {
	addKeyFlag(planCmd.Flags())
	rootCmd.AddCommand(planCmd)
}
