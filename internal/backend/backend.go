// Package backend wires the encoding drivers into a capability table. Which
// encodings a build supports is decided by build tags: nogrib, nonetcdf,
// noservice, noextra and noieg each leave one family out.
package backend

import (
	"github.com/samcharles93/gridscan/internal/backend/driver"
	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// Table maps file types to their drivers. Types whose support is not
// compiled in are absent.
type Table map[filetype.Type]driver.Driver

// New builds the table of compiled-in drivers.
func New(log logger.Logger) Table {
	if log == nil {
		log = logger.Discard()
	}
	t := make(Table)
	streams := stream.New("stream", log.With("driver", "stream"))
	registerGRIB(t, log.With("driver", "grib"))
	registerNetCDF(t, streams)
	registerService(t, streams)
	registerExtra(t, streams)
	registerIEG(t, streams)
	return t
}

// Driver returns the driver for ft and false when support for ft is not
// compiled in or was disabled.
func (t Table) Driver(ft filetype.Type) (driver.Driver, bool) {
	d, ok := t[ft]
	return d, ok && d != nil
}

// Has reports whether ft can be read.
func (t Table) Has(ft filetype.Type) bool {
	_, ok := t.Driver(ft)
	return ok
}

// Disable removes types from the table.
func (t Table) Disable(types ...filetype.Type) {
	for _, ft := range types {
		delete(t, ft)
	}
}
