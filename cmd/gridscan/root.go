package main

import (
	"fmt"
	"os"

	"github.com/batchatco/go-gridscan/gridscan"
	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/backend/netcdf"
	"github.com/batchatco/go-gridscan/gridscan/config"
	"github.com/batchatco/go-gridscan/gridscan/database"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/internal"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var logger = internal.Std()

var rootCmd = &cobra.Command{
	Use:   "gridscan",
	Short: "Scan and load gridded datasets spread over many files",
	Long: `gridscan reads a dataset definition (TOML), scans the files it describes
and loads any part of the dataset, opening only the files it needs.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		gridscan.SetLogLevel(viper.GetInt("log_level"))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	viper.SetDefault("log_level", 2)
	viper.SetDefault("backend", "netcdf")

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.gridscan/config.toml)")
	flags.Int("log-level", 2, "verbosity, from 0 (fatal only) to 3 (info)")
	flags.String("dataset", "", "dataset definition, when not given as argument")
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("dataset", flags.Lookup("dataset"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.gridscan")
		}
	}

	viper.SetEnvPrefix("GRIDSCAN")
	viper.AutomaticEnv()

	// Settings are optional.
	_ = viper.ReadInConfig()
}

// addKeyFlag adds the repeatable --key flag selecting part of a dataset.
func addKeyFlag(flags *pflag.FlagSet) {
	flags.StringArrayP("key", "k", nil, "selection as dim=KEY, KEY being 3, 1,4,7, 0:10:2 or sst,chl")
}

func keyring(cmd *cobra.Command) (*key.Keyring, error) {
	pairs, err := cmd.Flags().GetStringArray("key")
	if err != nil {
		return nil, err
	}
	return key.ParseKeyring(pairs)
}

func backend() (api.Backend, error) {
	switch name := viper.GetString("backend"); name {
	case "netcdf":
		return netcdf.Backend{}, nil
	default:
		return nil, errors.Errorf("unknown backend %q", name)
	}
}

// datasetPath returns the definition given as argument, or in settings.
func datasetPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p := viper.GetString("dataset"); p != "" {
		return p, nil
	}
	return "", errors.New("no dataset definition given")
}

// openDatabase reads a definition and scans its files.
func openDatabase(args []string) (*database.DataBase, *config.Dataset, error) {
	path, err := datasetPath(args)
	if err != nil {
		return nil, nil, err
	}
	ds, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	b, err := backend()
	if err != nil {
		return nil, nil, err
	}
	db, err := config.Build(ds, b, nil)
	if err != nil {
		return nil, nil, err
	}
	return db, ds, nil
}
