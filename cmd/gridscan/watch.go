package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/batchatco/go-gridscan/gridscan/config"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dataset]",
	Short: "Scan the dataset again whenever files change under its root",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, ds, err := openDatabase(args)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printScan(w, db)
		delay, _ := cmd.Flags().GetDuration("debounce")
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watch(ctx, ds.Root, delay, func() {
			b, err := backend()
			if err != nil {
				fmt.Fprintln(w, err)
				return
			}
			db, err := config.Build(ds, b, nil)
			if err != nil {
				fmt.Fprintln(w, "scan failed:", err)
				return
			}
			printScan(w, db)
		})
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "quiet time before scanning again")
	rootCmd.AddCommand(watchCmd)
}

// watch calls rescan once changes under root have settled for delay,
// until ctx is done. New directories are watched as they appear.
func watch(ctx context.Context, root string, delay time.Duration, rescan func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer fw.Close()

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "watching %s", root)
	}

	timer := time.NewTimer(delay)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					fw.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				timer.Reset(delay)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("watching %s: %v", root, err)
		case <-timer.C:
			rescan()
		}
	}
}
