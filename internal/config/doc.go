// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for vibe.
//
// Supports TOML and YAML configuration files, .env files, environment
// variable overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (VIBE_*), including those from .env files
//   - ~/.studying-vibe/config.toml
//   - ~/.studying-vibe/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := backend.NewClientWithConfig(&backend.ClientConfig{
//	    BaseURL: cfg.Server.URL,
//	    Timeout: cfg.Server.RequestTimeout(),
//	})
package config
