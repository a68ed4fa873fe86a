package models

const (
	FormatWebP = "webp"

	DefaultQuality = 95
	MinQuality     = 1
	MaxQuality     = 100
)

// TransformParameters is supplied once per batch and never mutated while it runs.
// A zero MaxWidth or MaxHeight means no constraint on that axis.
type TransformParameters struct {
	Quality   int    `json:"quality"`
	MaxWidth  int    `json:"maxWidth,omitempty"`
	MaxHeight int    `json:"maxHeight,omitempty"`
	Suffix    string `json:"suffix,omitempty"`
	Format    string `json:"format"`
}

func (p TransformParameters) HasBounds() bool {
	return p.MaxWidth > 0 || p.MaxHeight > 0
}

// CompressForm holds the raw scalar fields of a compress request.
type CompressForm struct {
	Quality   string
	MaxWidth  string
	MaxHeight string
	Suffix    string
}
