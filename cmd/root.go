// Copyright 2024 The kvfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skx-labs/kvfs/internal/config"
)

const version = "0.1.0"

var cfgValue = config.Default()

var rootCmd = &cobra.Command{
	Use:     "kvfsd",
	Short:   "Mount a directory backed by a remote key/value store",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyEnvOverrides(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMount(cmd.Context(), cfgValue)
	},
}

// applyEnvOverrides fills in any flag the user did not pass explicitly from
// its REDISFS_* environment variable, if set. Flags win over environment,
// environment wins over the compiled-in default.
func applyEnvOverrides(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	set := func(name string, apply func(string)) {
		if flags.Changed(name) {
			return
		}
		if v := viper.GetString(name); v != "" {
			apply(v)
		}
	}

	set("host", func(v string) { cfgValue.Host = v })
	set("mount", func(v string) { cfgValue.Mount = v })
	set("prefix", func(v string) { cfgValue.Prefix = v })
	set("log-file", func(v string) { cfgValue.LogFile = v })
	set("pid-file", func(v string) { cfgValue.PIDFile = v })

	if !flags.Changed("port") && viper.IsSet("port") {
		cfgValue.Port = viper.GetInt("port")
	}
	if !flags.Changed("read-only") && viper.IsSet("read-only") {
		cfgValue.ReadOnly = viper.GetBool("read-only")
	}
	if !flags.Changed("fast") && viper.IsSet("fast") {
		cfgValue.Fast = viper.GetBool("fast")
	}
	if !flags.Changed("debug") && viper.IsSet("debug") {
		cfgValue.Debug = viper.GetBool("debug")
	}
}

// Execute runs the root command, translating any error into a non-zero
// process exit.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgValue.Host, "host", cfgValue.Host, "backing store host")
	flags.IntVar(&cfgValue.Port, "port", cfgValue.Port, "backing store port")
	flags.StringVar(&cfgValue.Mount, "mount", cfgValue.Mount, "mount point directory")
	flags.StringVar(&cfgValue.Prefix, "prefix", cfgValue.Prefix, "key prefix for this namespace")
	flags.BoolVar(&cfgValue.ReadOnly, "read-only", cfgValue.ReadOnly, "refuse every mutating operation")
	flags.BoolVar(&cfgValue.Fast, "fast", cfgValue.Fast, "skip atime updates and mtime updates on appending writes")
	flags.BoolVar(&cfgValue.Debug, "debug", cfgValue.Debug, "enable debug-level logging")
	flags.StringVar(&cfgValue.LogFile, "log-file", cfgValue.LogFile, "rotate logs to this file instead of stderr")
	flags.StringVar(&cfgValue.PIDFile, "pid-file", cfgValue.PIDFile, "write the process PID to this file")

	viper.SetEnvPrefix("REDISFS")
	viper.AutomaticEnv()
	bindEnv("host", "port", "mount", "prefix", "read-only", "fast", "debug", "log-file", "pid-file")
}

// bindEnv wires REDISFS_<FLAG> environment variables as fallbacks for each
// named persistent flag: a flag the user passes on the command line always
// wins, with the environment as the fallback before the compiled-in default.
func bindEnv(names ...string) {
	flags := rootCmd.PersistentFlags()
	for _, name := range names {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
