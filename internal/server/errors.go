// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "errors"

// ErrInvalidServerParams is returned by NewServer without a handler or a
// listen address.
var ErrInvalidServerParams = errors.New("server needs a handler and a listen address")
