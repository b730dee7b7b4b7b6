//go:build nogrib

package backend

import "github.com/samcharles93/gridscan/internal/logger"

func registerGRIB(Table, logger.Logger) {}
