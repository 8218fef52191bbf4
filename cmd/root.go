// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stratastor/diskscan/cmd/probe"
	"github.com/stratastor/diskscan/cmd/scan"
	"github.com/stratastor/diskscan/cmd/watch"
)

// NewRootCmd builds the diskscan root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diskscan",
		Short: "diskscan: block-device latency scanner and health reporter",
	}

	rootCmd.AddCommand(scan.NewScanCmd())
	rootCmd.AddCommand(probe.NewProbeCmd())
	rootCmd.AddCommand(watch.NewWatchCmd())

	return rootCmd
}
