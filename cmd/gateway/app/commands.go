// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the gateway command-line
// application.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:               "gateway",
	DisableAutoGenTag: true,
	Short:             "Authentication and authorization gateway for dashboard deployments",
	Long: `The gateway fronts a dashboard deployment with OIDC login and
per-request authorization. Users sign in at the configured identity
provider; the gateway mints a signed session token carrying the user's
organization memberships and checks it on every request before proxying
to the upstream application.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// If no subcommand is provided, print help
		return cmd.Help()
	},
}

// NewRootCmd creates a new root command for the gateway CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
