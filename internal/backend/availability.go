package backend

import "github.com/samcharles93/gridscan/pkg/filetype"

// Available returns the readable file types in tag table order.
func (t Table) Available() []filetype.Type {
	var out []filetype.Type
	for _, ft := range filetype.Types() {
		if t.Has(ft) {
			out = append(out, ft)
		}
	}
	return out
}
