package main

import (
	"fmt"
	"io"

	"github.com/batchatco/go-gridscan/gridscan/database"
	"github.com/batchatco/go-gridscan/gridscan/filegroup"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dataset]",
	Short: "Scan the files of a dataset and print what is available",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase(args)
		if err != nil {
			return err
		}
		printScan(cmd.OutOrStdout(), db)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// printScan prints the available scope and, for every filegroup, how many
// available values it provides along each dimension.
func printScan(w io.Writer, db *database.DataBase) {
	fmt.Fprintln(w, db.Avail)
	t := newTable(w)
	header := table.Row{"filegroup", "files"}
	for _, d := range db.CoordDims() {
		header = append(header, d)
	}
	t.AppendHeader(header)
	for _, fg := range db.Filegroups() {
		row := table.Row{fg.Name, len(fg.Files)}
		for _, d := range db.CoordDims() {
			cs, ok := fg.Coord(d)
			if !ok {
				row = append(row, "-")
				continue
			}
			n := 0
			contains := cs.Contains()
			for _, i := range contains {
				if i != filegroup.NoIndex {
					n++
				}
			}
			row = append(row, fmt.Sprintf("%d/%d", n, len(contains)))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault
	return t
}
