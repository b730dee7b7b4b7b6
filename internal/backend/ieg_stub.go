//go:build noieg

package backend

import "github.com/samcharles93/gridscan/internal/backend/stream"

func registerIEG(Table, *stream.Driver) {}
