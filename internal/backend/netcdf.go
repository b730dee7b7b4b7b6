//go:build !nonetcdf

package backend

import (
	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/cdf"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// NCZarr stores are directories of zarr chunks, which the NetCDF reader
// cannot open, so that type stays unregistered.
func registerNetCDF(t Table, s *stream.Driver) {
	for _, ft := range []filetype.Type{filetype.NC, filetype.NC2, filetype.NC4, filetype.NC4C, filetype.NC5} {
		s.Register(ft, cdf.OpenSource)
		t[ft] = s
	}
}
