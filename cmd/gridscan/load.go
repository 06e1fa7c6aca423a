package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [dataset]",
	Short: "Load part of a dataset and print the range of every variable",
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
		if err := db.Load(kr); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, db.Loaded)
		t := newTable(w)
		t.AppendHeader(table.Row{"variable", "shape", "min", "max"})
		for _, v := range db.Loaded.Variables() {
			a, err := db.Variable(v)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{v, fmt.Sprint(a.Shape()), a.Min(), a.Max()})
		}
		t.Render()
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			return db.Write(out)
		}
		return nil
	},
}

func init() {
	addKeyFlag(loadCmd.Flags())
	loadCmd.Flags().StringP("output", "o", "", "write the loaded data to this file")
	rootCmd.AddCommand(loadCmd)
}
