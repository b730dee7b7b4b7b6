package iterator

import (
	"strings"
	"unicode"

	"github.com/samcharles93/gridscan/pkg/filetype"
)

const (
	stateAdvanced   = "advanced"
	stateUnadvanced = "unadvanced"
)

// description is the parsed form of a serialized iterator.
type description struct {
	ft       filetype.Type
	advanced bool
	payload  string
}

func (d description) String() string {
	state := stateUnadvanced
	if d.advanced {
		state = stateAdvanced
	}
	return d.ft.Tag() + " " + state + " " + d.payload
}

// parseTag matches the leading token of text against the tag table and
// returns the rest of the text. The remainder is only parsed once the tag's
// backend is known to be available, since other builds may extend it.
func parseTag(text string) (filetype.Type, string, error) {
	ft, rest, ok := filetype.MatchTag(text)
	if !ok {
		return filetype.Undefined, "", &DescriptionError{Text: text, Reason: "unknown encoding tag"}
	}
	return ft, rest, nil
}

// parseBody splits "<state> <payload>" following the tag of text.
func parseBody(text string, ft filetype.Type, rest string) (description, error) {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	state, payload := rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		state, payload = rest[:i], rest[i:]
	}
	d := description{ft: ft}
	switch state {
	case stateAdvanced:
		d.advanced = true
	case stateUnadvanced:
	default:
		return description{}, &DescriptionError{Text: text, Reason: "state must be advanced or unadvanced"}
	}
	d.payload = strings.TrimSpace(payload)
	if d.payload == "" {
		return description{}, &DescriptionError{Text: text, Reason: "missing payload"}
	}
	return d, nil
}
