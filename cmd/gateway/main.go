// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the authentication gateway.
package main

import (
	"os"

	"github.com/replidash/gateway/cmd/gateway/app"
	"github.com/replidash/gateway/pkg/logger"
)

func main() {
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
