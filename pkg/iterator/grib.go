package iterator

import (
	"github.com/samcharles93/gridscan/internal/backend/driver"
	"github.com/samcharles93/gridscan/internal/grib"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// GribIterator is an Iterator over GRIB messages that also exposes the
// decoded message keys. It embeds the general Iterator, so Next, Close and
// every other query keep working on it.
type GribIterator struct {
	*Iterator
}

// NarrowClone clones a GRIB iterator into a GribIterator. Iterators of any
// other family return ErrNotApplicable.
func (it *Iterator) NarrowClone() (*GribIterator, error) {
	it.check("NarrowClone")
	if it.ft.Family() != filetype.FamilyGRIB {
		return nil, ErrNotApplicable
	}
	c, err := it.Clone()
	if err != nil {
		return nil, err
	}
	if _, ok := c.cur.(driver.MessageCursor); !ok {
		_ = c.Close()
		invariant("NarrowClone", "%s cursor does not expose messages", it.ft)
	}
	return &GribIterator{Iterator: c}, nil
}

func (g *GribIterator) message(op string) *grib.Message {
	if g == nil || g.Iterator == nil {
		usage(op, "nil iterator")
	}
	g.check(op)
	mc, ok := g.cur.(driver.MessageCursor)
	if !ok {
		invariant(op, "%s cursor does not expose messages", g.ft)
	}
	m := mc.Message()
	if m == nil || !g.onField {
		usage(op, "no current message")
	}
	return m
}

// Edition is the GRIB edition number of the current message.
func (g *GribIterator) Edition() int { return g.message("Edition").Edition }

// Length is the encoded size of the current message in bytes.
func (g *GribIterator) Length() int { return g.message("Length").Len() }

// Bytes returns a copy of the encoded message.
func (g *GribIterator) Bytes() []byte {
	return append([]byte(nil), g.message("Bytes").Bytes()...)
}

// Long returns an integer key such as "numberOfValues" or "parameterNumber".
func (g *GribIterator) Long(key string) (int64, error) {
	return g.message("Long").Long(key)
}

func (g *GribIterator) Double(key string) (float64, error) {
	return g.message("Double").Double(key)
}

// Text returns a key formatted as text, including "shortName".
func (g *GribIterator) Text(key string) (string, error) {
	return g.message("Text").String(key)
}
