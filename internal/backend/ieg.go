//go:build !noieg

package backend

import (
	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/ieg"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

func registerIEG(t Table, s *stream.Driver) {
	s.Register(filetype.IEG, ieg.OpenSource)
	t[filetype.IEG] = s
}
