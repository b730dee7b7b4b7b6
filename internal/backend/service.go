//go:build !noservice

package backend

import (
	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/service"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

func registerService(t Table, s *stream.Driver) {
	s.Register(filetype.SRV, service.OpenSource)
	t[filetype.SRV] = s
}
