package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// MissingValue marks absent grid points in the legacy record formats.
const MissingValue = -9e33

// IsMissing reports whether v is the missing value at either precision.
func IsMissing(v float64) bool {
	return v == MissingValue || v == float64(float32(MissingValue))
}

// Pairs reads files laid out as a header record followed by a data record
// per field. Data records are only read on demand.
type Pairs struct {
	f       *os.File
	r       *Reader
	dataOff int64
	pending bool
}

// OpenPairs opens path and detects the byte order from the first header
// marker, which must be one of headerSizes. An empty file has no fields.
func OpenPairs(path string, headerSizes ...int) (*Pairs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var head [4]byte
	n, err := io.ReadFull(f, head[:])
	order := binary.ByteOrder(binary.BigEndian)
	switch {
	case n == 0 && errors.Is(err, io.EOF):
	case err != nil:
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, path, err)
	default:
		var ok bool
		if order, ok = SniffOrder(head[:], headerSizes...); !ok {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s: header length %x not one of %v", ErrCorruptRecord, path, head, headerSizes)
		}
	}
	p := &Pairs{f: f, r: NewReader(f, order)}
	if err := p.r.SeekRecord(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pairs) Order() binary.ByteOrder { return p.r.Order() }

// Header reads the header record of the following field. It returns io.EOF
// at the end of the file.
func (p *Pairs) Header() ([]byte, error) {
	if err := p.skipPending(); err != nil {
		return nil, err
	}
	h, err := p.r.Next()
	if err != nil {
		return nil, err
	}
	p.dataOff = p.r.Offset()
	p.pending = true
	return h, nil
}

// Skip moves past the following field without reading its payloads.
func (p *Pairs) Skip() error {
	if err := p.skipPending(); err != nil {
		return err
	}
	if _, err := p.r.Skip(); err != nil {
		return err
	}
	p.pending = true
	return p.skipPending()
}

// Data reads the data record of the field whose header was read last.
func (p *Pairs) Data() ([]byte, error) {
	if p.dataOff == 0 {
		return nil, errors.New("record: data requested before header")
	}
	if err := p.r.SeekRecord(p.dataOff); err != nil {
		return nil, err
	}
	d, err := p.r.Next()
	if err != nil {
		return nil, unexpected(err)
	}
	p.pending = false
	return d, nil
}

// Values decodes the data record of the current field, which holds n reals
// of 4 or 8 bytes, into buf and counts the missing values.
func (p *Pairs) Values(n int, buf []float64) (int, error) {
	d, err := p.Data()
	if err != nil {
		return 0, err
	}
	if n <= 0 || len(d)%n != 0 {
		return 0, fmt.Errorf("%w: data record of %d bytes for %d values", ErrCorruptRecord, len(d), n)
	}
	if _, err := Floats(d, p.Order(), len(d)/n, buf[:n]); err != nil {
		return 0, err
	}
	missing := 0
	for _, v := range buf[:n] {
		if IsMissing(v) {
			missing++
		}
	}
	return missing, nil
}

func (p *Pairs) skipPending() error {
	if !p.pending {
		return nil
	}
	if _, err := p.r.Skip(); err != nil {
		return unexpected(err)
	}
	p.pending = false
	return nil
}

func (p *Pairs) Close() error { return p.f.Close() }
