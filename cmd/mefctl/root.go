/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dirpx.dev/mef/catalog"
	"dirpx.dev/mef/container"
)

var errNoManifest = errors.New("no manifest: set --manifest or MEF_MANIFEST")

// config holds the settings shared by every command.
type config struct {
	Manifest string    `mapstructure:"manifest"`
	Metrics  bool      `mapstructure:"metrics"`
	Log      logConfig `mapstructure:"log"`
}

type logConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// app carries what PersistentPreRunE prepared for the commands.
type app struct {
	v       *viper.Viper
	cfg     config
	log     logr.Logger
	sync    func() error
	metrics *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "mefctl",
		Short:         "Compose and inspect part manifests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cfgFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Metrics && a.metrics != nil {
				if err := writeMetrics(cmd.OutOrStdout(), a.metrics); err != nil {
					return err
				}
			}
			if a.sync != nil {
				_ = a.sync()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	flags.StringP("manifest", "m", "", "part manifest to load")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-development", false, "human readable logs")
	flags.Bool("metrics", false, "print composition metrics after the command")
	_ = a.v.BindPFlag("manifest", flags.Lookup("manifest"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.development", flags.Lookup("log-development"))
	_ = a.v.BindPFlag("metrics", flags.Lookup("metrics"))

	root.AddCommand(newResolveCmd(a), newGraphCmd(a))
	return root
}

func (a *app) init(cfgFile string) error {
	a.v.SetEnvPrefix("MEF")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	log, sync, err := newLogger(a.cfg.Log)
	if err != nil {
		return err
	}
	a.log, a.sync = log, sync
	if a.cfg.Metrics {
		a.metrics = prometheus.NewRegistry()
	}
	return nil
}

func newLogger(c logConfig) (logr.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	z, err := zc.Build()
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("building logger: %w", err)
	}
	return zapr.NewLogger(z), z.Sync, nil
}

// catalog loads the manifest.
func (a *app) catalog() (*catalog.Catalog, error) {
	if a.cfg.Manifest == "" {
		return nil, errNoManifest
	}
	dir, name := filepath.Split(a.cfg.Manifest)
	if dir == "" {
		dir = "."
	}
	m, err := catalog.LoadFS(os.DirFS(dir), name)
	if err != nil {
		return nil, err
	}
	cat, err := m.Catalog()
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", a.cfg.Manifest, err)
	}
	a.log.V(1).Info("manifest loaded", "path", a.cfg.Manifest, "parts", cat.Len())
	return cat, nil
}

// open loads the manifest into a new container.
func (a *app) open() (*container.Container, error) {
	cat, err := a.catalog()
	if err != nil {
		return nil, err
	}
	opts := []container.Option{container.WithCatalog(cat), container.WithLogger(a.log)}
	if a.metrics != nil {
		opts = append(opts, container.WithMetrics(a.metrics))
	}
	return container.New(opts...)
}
