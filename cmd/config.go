// Copyright © 2024 The ELPS authors

package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/engine"
)

// Configuration keys.
const (
	keyExecutable     = "compiler.executable"
	keyArgs           = "compiler.args"
	keyTimeout        = "compiler.timeout"
	keyOutputDir      = "compiler.output_dir"
	keyRemoteEndpoint = "compiler.remote.endpoint"
	keyRemoteToken    = "compiler.remote.token"
	keyLogLevel       = "log.level"
	keyColor          = "color"
	keyFormat         = "format"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyArgs, compile.DefaultArgs)
	v.SetDefault(keyTimeout, compile.DefaultTimeout)
	v.SetDefault(keyLogLevel, logrus.WarnLevel.String())
	v.SetDefault(keyColor, "auto")
	v.SetDefault(keyFormat, formatText)
}

// compileConfig reads the compiler settings from v.
func compileConfig(v *viper.Viper) compile.Config {
	cfg := compile.Config{
		Executable: v.GetString(keyExecutable),
		Timeout:    v.GetDuration(keyTimeout),
		OutputDir:  v.GetString(keyOutputDir),
		Remote: compile.RemoteConfig{
			Endpoint: v.GetString(keyRemoteEndpoint),
			Token:    v.GetString(keyRemoteToken),
		},
	}
	if args := v.GetStringSlice(keyArgs); len(args) > 0 {
		cfg.Args = args
	}
	return cfg
}

// newLogger returns a logger writing to stderr at the configured level.
// An unknown level name falls back to warnings.
func newLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = os.Stderr
	level, err := logrus.ParseLevel(viper.GetString(keyLogLevel))
	if err != nil {
		level = logrus.WarnLevel
	}
	l.Level = level
	return logrus.NewEntry(l)
}

func colorMode() diagnostic.ColorMode {
	mode, ok := diagnostic.ParseColorMode(viper.GetString(keyColor))
	if !ok {
		return diagnostic.ColorAuto
	}
	return mode
}

func newRenderer() *diagnostic.Renderer {
	return &diagnostic.Renderer{Color: colorMode()}
}

// newEngine returns an engine configured from viper and the command
// factory options.
func (c *cmdConfig) newEngine() *engine.Engine {
	log := newLogger()
	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithConfig(compileConfig(viper.GetViper())),
	}
	if c.backend != nil {
		opts = append(opts, engine.WithBackend(c.backend))
	}
	if c.profiler != nil {
		opts = append(opts, engine.WithProfiler(c.profiler))
	}
	return engine.New(opts...)
}
