//go:build !nogrib

package backend

import (
	"github.com/samcharles93/gridscan/internal/backend/message"
	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

func registerGRIB(t Table, log logger.Logger) {
	d := message.New(log)
	t[filetype.GRB] = d
	t[filetype.GRB2] = d
}
