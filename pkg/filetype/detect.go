package filetype

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknown is returned when the contents of a file match no known encoding.
var ErrUnknown = errors.New("filetype: unknown format")

const (
	// sniffSize covers the largest legacy header record plus its markers and
	// the leading marker of the following data record.
	sniffSize = 1100

	// gribSearchWindow bounds how far into the file a GRIB magic may start.
	gribSearchWindow = 1024

	nczarrMode = "#mode=nczarr"
)

var hdf5Signature = []byte("\x89HDF\r\n\x1a\n")

// Detect inspects the file at path and reports its encoding.
func Detect(path string) (Type, error) {
	if strings.Contains(path, nczarrMode) {
		return NCZarr, nil
	}
	st, err := os.Stat(path)
	if err != nil {
		return Undefined, err
	}
	if st.IsDir() {
		for _, marker := range []string{".zgroup", ".zarray"} {
			if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
				return NCZarr, nil
			}
		}
		return Undefined, ErrUnknown
	}

	f, err := os.Open(path)
	if err != nil {
		return Undefined, err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Undefined, err
	}
	return DetectBytes(head[:n])
}

// DetectBytes classifies the leading bytes of a file.
func DetectBytes(head []byte) (Type, error) {
	switch {
	case len(head) >= 4 && bytes.HasPrefix(head, []byte("CDF")):
		switch head[3] {
		case 1:
			return NC, nil
		case 2:
			return NC2, nil
		case 5:
			return NC5, nil
		}
		return Undefined, ErrUnknown
	case bytes.HasPrefix(head, hdf5Signature):
		return NC4, nil
	}

	if t, ok := sniffGRIB(head); ok {
		return t, nil
	}
	if t, ok := sniffRecords(head); ok {
		return t, nil
	}
	return Undefined, ErrUnknown
}

func sniffGRIB(head []byte) (Type, bool) {
	window := head
	if len(window) > gribSearchWindow {
		window = window[:gribSearchWindow]
	}
	idx := bytes.Index(window, []byte("GRIB"))
	if idx < 0 || idx+8 > len(head) {
		return Undefined, false
	}
	switch head[idx+7] {
	case 1:
		return GRB, true
	case 2:
		return GRB2, true
	}
	return Undefined, false
}

// Legacy record header sizes in bytes.
const (
	srvHeader4 = 8 * 4
	srvHeader8 = 8 * 8
	extHeader4 = 4 * 4
	extHeader8 = 4 * 8
	iegHeader4 = 636
	iegHeader8 = 1036
)

func sniffRecords(head []byte) (Type, bool) {
	if len(head) < 4 {
		return Undefined, false
	}
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		marker := int(order.Uint32(head))
		switch marker {
		case iegHeader4, iegHeader8:
			if trailerMatches(head, order, marker) {
				return IEG, true
			}
		case srvHeader4:
			// 32 bytes is either a single precision SERVICE header or a double
			// precision EXTRA header; the data record length disambiguates.
			if checkSRV(head, order, 4) {
				return SRV, true
			}
			if checkEXT(head, order, 8) {
				return EXT, true
			}
		case srvHeader8:
			if checkSRV(head, order, 8) {
				return SRV, true
			}
		case extHeader4:
			if checkEXT(head, order, 4) {
				return EXT, true
			}
		}
	}
	return Undefined, false
}

func trailerMatches(head []byte, order binary.ByteOrder, size int) bool {
	end := 4 + size
	if len(head) < end+4 {
		return false
	}
	return int(order.Uint32(head[end:])) == size
}

func headerInts(head []byte, order binary.ByteOrder, width, count int) ([]int64, bool) {
	if len(head) < 4+width*count {
		return nil, false
	}
	out := make([]int64, count)
	for i := range out {
		off := 4 + i*width
		if width == 4 {
			out[i] = int64(int32(order.Uint32(head[off:])))
		} else {
			out[i] = int64(order.Uint64(head[off:]))
		}
	}
	return out, true
}

func dataMarker(head []byte, order binary.ByteOrder, headerSize int) (int64, bool) {
	if !trailerMatches(head, order, headerSize) {
		return 0, false
	}
	off := 4 + headerSize + 4
	if len(head) < off+4 {
		return 0, false
	}
	return int64(order.Uint32(head[off:])), true
}

func checkSRV(head []byte, order binary.ByteOrder, width int) bool {
	h, ok := headerInts(head, order, width, 8)
	if !ok {
		return false
	}
	nlon, nlat := h[4], h[5]
	if nlon <= 0 || nlat <= 0 {
		return false
	}
	got, ok := dataMarker(head, order, 8*width)
	return ok && got == nlon*nlat*int64(width)
}

func checkEXT(head []byte, order binary.ByteOrder, width int) bool {
	h, ok := headerInts(head, order, width, 4)
	if !ok {
		return false
	}
	size := h[3]
	if size <= 0 {
		return false
	}
	got, ok := dataMarker(head, order, 4*width)
	return ok && got == size*int64(width)
}
