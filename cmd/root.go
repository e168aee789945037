// Copyright © 2018 The ELPS authors

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// errProblems is returned by commands that ran to completion but found
// errors in their input.  It maps to exit status 1 without a message.
var errProblems = errors.New("problems reported")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ctxengine",
	Short: "ConTeXt document engine",
	Long: `ctxengine maintains live ConTeXt document sessions. It lexes and parses
markup into a lossless syntax tree, computes highlighting and diagnostics,
and compiles documents with the ConTeXt typesetting engine.

Getting started:
  ctxengine highlight doc.tex          Print highlight spans
  ctxengine diagnose doc.tex           Report malformed markup
  ctxengine compile doc.tex            Typeset a document
  ctxengine compile ./...              Typeset every document below .
  ctxengine shell                      Start an interactive session shell
  ctxengine lsp --stdio                Start the language server

Configuration is read from $HOME/.ctxengine.yaml (or --config) and from
environment variables prefixed with CTXENGINE_, e.g.
CTXENGINE_COMPILER_EXECUTABLE=/opt/context/bin/context.

  compiler.executable       engine path or name (default: context, mtxrun)
  compiler.args             arguments before the input file
  compiler.timeout          bound on a single compilation (default 2m)
  compiler.output_dir       artifact directory
  compiler.remote.endpoint  compile service URL (selects remote compilation)
  compiler.remote.token     compile service bearer token
  log.level                 logging level (default warning)
  color                     auto, always, or never`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, errProblems):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "ctxengine:", err)
		os.Exit(2)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ctxengine.yaml)")
	flags.String("color", "auto", `Control colored output: "auto", "always", or "never".`)
	flags.String("log-level", "warning", "Logging level written to stderr.")
	flags.String("format", formatText, `Output format: "text", "json", or "msgpack".`)
	flags.String("executable", "", "Typesetting engine path or command name.")
	flags.Duration("timeout", 0, "Bound on a single compilation (default 2m).")
	flags.String("output-dir", "", "Directory receiving compiled artifacts.")
	flags.String("remote", "", "Compile service endpoint.")

	bindFlag(keyColor, "color")
	bindFlag(keyLogLevel, "log-level")
	bindFlag(keyFormat, "format")
	bindFlag(keyExecutable, "executable")
	bindFlag(keyTimeout, "timeout")
	bindFlag(keyOutputDir, "output-dir")
	bindFlag(keyRemoteEndpoint, "remote")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults(viper.GetViper())
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in home directory with name ".ctxengine" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".ctxengine")
	}

	viper.SetEnvPrefix("CTXENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.  Standard output may carry a
	// protocol so the file in use is only logged.
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		newLogger().WithField("config", viper.ConfigFileUsed()).Debug("Using config file")
	case errors.As(err, &notFound):
	default:
		fmt.Fprintln(os.Stderr, "ctxengine: config:", err)
		os.Exit(2)
	}
}
