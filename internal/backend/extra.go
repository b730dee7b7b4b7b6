//go:build !noextra

package backend

import (
	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/extra"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

func registerExtra(t Table, s *stream.Driver) {
	s.Register(filetype.EXT, extra.OpenSource)
	t[filetype.EXT] = s
}
