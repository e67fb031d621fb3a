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

// Command kvfs-snapshot is a companion one-shot tool: it
// copies every key under one prefix to another in the same backing store,
// independently of any running kvfsd mount.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skx-labs/kvfs/internal/snapshot"
	"github.com/skx-labs/kvfs/internal/store"
)

func main() {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "kvfs-snapshot <old-prefix> <new-prefix>",
		Short: "Copy every key under one prefix to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := store.New(store.Config{Host: host, Port: port})
			defer client.Close()

			ctx := context.Background()
			if err := client.EnsureAlive(ctx); err != nil {
				return fmt.Errorf("connecting to %s:%d: %w", host, port, err)
			}

			stats, err := snapshot.Run(ctx, client, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("copied %d string keys, %d sets (%d members)\n",
				stats.StringsCopied, stats.SetsCopied, stats.MembersCopied)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "backing store host")
	cmd.Flags().IntVar(&port, "port", 6379, "backing store port")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
