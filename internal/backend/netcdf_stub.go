//go:build nonetcdf

package backend

import "github.com/samcharles93/gridscan/internal/backend/stream"

func registerNetCDF(Table, *stream.Driver) {}
