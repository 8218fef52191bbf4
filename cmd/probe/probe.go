// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package probe implements the `diskscan probe` command: probe a device
// and print its resolved DeviceDescriptor without scanning.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratastor/diskscan/internal/cliutil"
)

var configPath string

// NewProbeCmd builds the `probe` subcommand.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <device>",
		Short: "Probe a device and print its resolved descriptor",
		Args:  cobra.ExactArgs(1),
		RunE:  runProbe,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "ambient application config path")
	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	devicePath := args[0]

	bs, err := cliutil.NewBootstrap(configPath, "probe")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize:", err)
		os.Exit(2)
		return nil
	}

	descriptor, err := bs.Prober.Probe(context.Background(), devicePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "probe failed:", err)
		os.Exit(3)
		return nil
	}

	out, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to render descriptor:", err)
		os.Exit(2)
		return nil
	}
	fmt.Println(string(out))

	if err := descriptor.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: descriptor failed invariant check:", err)
	}

	return nil
}
