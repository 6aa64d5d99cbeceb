// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/replidash/gateway/pkg/config"
	"github.com/replidash/gateway/pkg/logger"
	"github.com/replidash/gateway/pkg/networking"
	"github.com/replidash/gateway/pkg/provider"
	"github.com/replidash/gateway/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway server",
	Long: `Run the gateway HTTP server. All settings come from GATEWAY_*
environment variables; see the project README for the full list.`,
	RunE: serveCmdFunc,
}

func serveCmdFunc(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	httpClient, err := networking.NewHttpClientBuilder().
		WithCABundle(cfg.OIDC.CACertPath).
		WithPrivateIPs(cfg.OIDC.AllowPrivateIP).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	oidcProvider, err := provider.New(provider.Config{
		IssuerURL:      cfg.OIDC.IssuerURL,
		ClientID:       cfg.OIDC.ClientID,
		ClientSecret:   cfg.OIDC.ClientSecret,
		RedirectURL:    cfg.OIDC.RedirectURL,
		Scopes:         cfg.OIDC.Scopes,
		CACertPath:     cfg.OIDC.CACertPath,
		AllowPrivateIP: cfg.OIDC.AllowPrivateIP,
	}, provider.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	srv, err := server.New(cfg, oidcProvider)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("starting gateway for organization %s", cfg.Authz.ActiveOrgID)
	return srv.Start(ctx)
}
