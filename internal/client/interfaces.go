// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// Client defines the lifecycle contract of runnable client applications.
type Client interface {
	// Run executes the command in args, or the interactive dashboard when
	// args is empty, and blocks until it is done.
	Run(ctx context.Context, args []string) error
	// Close releases local resources.
	Close() error
}
