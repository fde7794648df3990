// Package frame drives one frame's decode: its header, the TOC of
// section sizes, and the lf_global/lf_group/hf_global/pass_group
// pipeline that fills a frame's modular channels and invokes the
// inverse transforms.
package frame

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

// ErrUnsupported marks a well-formed but not-yet-implemented feature
// (VarDCT numeric paths).
var ErrUnsupported = fmt.Errorf("frame: unsupported feature (vdct)")

// Type is the frame's role in the animation/reference pipeline.
type Type int

const (
	TypeRegular Type = iota
	TypeLF
	TypeRefOnly
	TypeRegularSkipProg
)

// BlendInfo is one channel's blending parameters against its reference
// frame slot.
type BlendInfo struct {
	Mode       int
	AlphaChan  int
	ClampMode  int
	Source     int
}

// Header is a fully specified frame header. An "all default" header
// (AllDefault == true) is a regular, modular, last frame (Type,
// IsModular and IsLast set accordingly); every other field takes its
// zero value.
type Header struct {
	AllDefault bool

	Type        Type
	IsModular   bool
	Flags       uint32
	Upsampling  int

	NumPasses int
	Crop      [4]int // x0, y0, width, height

	Blend       []BlendInfo
	Duration    uint32
	Timecode    uint32
	SaveAsRef   int
	SaveBeforeCT bool
	Name        string

	IsLast  bool
	LFLevel int

	// RestorationFilter holds the gaborish/edge-preserving filter
	// parameters as raw bytes. Nothing in this core applies them; they
	// are parsed so later sections stay byte-aligned.
	RestorationFilter []byte
}

// ReadHeader parses one frame header.
func ReadHeader(r *bitio.Reader) (*Header, error) {
	h := &Header{}
	h.AllDefault = r.U(1) != 0
	if h.AllDefault {
		h.Type = TypeRegular
		h.IsModular = true
		h.IsLast = true
		r.ZeroPadToByte()
		return h, nil
	}

	h.Type = Type(r.U(2))
	h.IsModular = r.U(1) != 0
	h.Flags = r.U32(0, 0, 1, 8, 257, 16, 65793, 24)
	h.Upsampling = 1 << r.U(2)

	h.NumPasses = int(r.U32(1, 0, 2, 0, 3, 0, 4, 3))

	haveCrop := r.U(1) != 0
	if haveCrop {
		h.Crop[0] = int(toSignedU32(r.U32(0, 8, 256, 11, 2304, 14, 18688, 30)))
		h.Crop[1] = int(toSignedU32(r.U32(0, 8, 256, 11, 2304, 14, 18688, 30)))
		h.Crop[2] = int(r.U32(0, 8, 256, 11, 2304, 14, 18688, 30))
		h.Crop[3] = int(r.U32(0, 8, 256, 11, 2304, 14, 18688, 30))
	}

	numExtraChannels := int(r.U(4))
	for i := 0; i < numExtraChannels; i++ {
		h.Blend = append(h.Blend, BlendInfo{
			Mode:      int(r.U(2)),
			AlphaChan: int(r.U(2)),
			ClampMode: int(r.U(1)),
			Source:    int(r.U(2)),
		})
	}

	if h.Type == TypeRegular || h.Type == TypeRegularSkipProg {
		h.Duration = r.U32(0, 0, 1, 8, 257, 16, 65793, 32)
		h.Timecode = r.U32(0, 0, 1, 8, 257, 16, 65793, 32)
	}

	h.IsLast = r.U(1) != 0
	if h.Type == TypeLF {
		h.LFLevel = int(r.U(2)) + 1
	}
	if !h.IsLast {
		h.SaveAsRef = int(r.U(2))
	}
	h.SaveBeforeCT = r.U(1) != 0

	haveName := r.U(1) != 0
	if haveName {
		n := int(r.U32(0, 0, 1, 4, 17, 8, 273, 16))
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(r.U(8))
		}
		h.Name = string(b)
	}

	haveFilter := r.U(1) != 0
	if haveFilter {
		n := int(r.U32(0, 0, 1, 6, 65, 10, 1089, 14))
		h.RestorationFilter = make([]byte, n)
		for i := range h.RestorationFilter {
			h.RestorationFilter[i] = byte(r.U(8))
		}
	}

	r.ZeroPadToByte()
	return h, nil
}

func toSignedU32(u uint32) int32 {
	if u&1 == 0 {
		return int32(u >> 1)
	}
	return -int32(u>>1) - 1
}

