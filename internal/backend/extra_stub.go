//go:build noextra

package backend

import "github.com/samcharles93/gridscan/internal/backend/stream"

func registerExtra(Table, *stream.Driver) {}
