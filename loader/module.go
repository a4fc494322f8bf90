package loader

import (
	"os"

	"github.com/wnxd/microhook/process"
)

// Image describes a host module to be mapped: its preferred base, its
// sections relative to that base and its export table.
type Image struct {
	Name    string
	Base    uint64
	Regions []Region
	Exports map[string]uint64
}

// Size is the span from the base to the end of the last region.
func (img *Image) Size() uint64 {
	var size uint64
	for _, r := range img.Regions {
		size = max(size, r.Addr+r.Size)
	}
	return size
}

// Export records name at the given offset from the base.
func (img *Image) Export(name string, rva uint64) *Image {
	if img.Exports == nil {
		img.Exports = make(map[string]uint64)
	}
	img.Exports[name] = rva
	return img
}

// FromFile builds a single-region read-only image holding the bytes of path.
func FromFile(name, path string, base uint64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Image{
		Name: name,
		Base: base,
		Regions: []Region{{
			Size: uint64(len(data)),
			Prot: process.MEM_PROT_READ,
			Data: data,
		}},
	}, nil
}
