package dggs

import (
	"fmt"
	"io"

	"github.com/qri-io/dataset/compression"
)

// CompressionMeta defines compression settings dggs-go understands
type CompressionMeta struct {
	ID      string `json:"id"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

// codec ids that name the same stream format under another spelling
var codecAliases = map[string]string{
	"zstd": "zst",
	"zst":  "zstd",
}

func (m *CompressionMeta) Decompressor(r io.ReadCloser) (io.ReadCloser, error) {
	rc, err := compression.Decompressor(m.ID, r)
	if err == nil {
		return rc, nil
	}
	if alias, ok := codecAliases[m.ID]; ok {
		if rc, aliasErr := compression.Decompressor(alias, r); aliasErr == nil {
			return rc, nil
		}
	}
	return nil, fmt.Errorf("compressor %q: %w", m.ID, err)
}
