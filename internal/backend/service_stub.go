//go:build noservice

package backend

import "github.com/samcharles93/gridscan/internal/backend/stream"

func registerService(Table, *stream.Driver) {}
