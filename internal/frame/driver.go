package frame

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
	"github.com/lifthrasiir/j40-sub000/internal/entropy"
	"github.com/lifthrasiir/j40-sub000/internal/matree"
	"github.com/lifthrasiir/j40-sub000/internal/modular"
)

// ErrMissingGlobalTree reports a frame whose modular channels have no
// global MA tree to decode against (code "mtre").
var ErrMissingGlobalTree = fmt.Errorf("frame: missing global tree (mtre)")

// ErrUnknownTransform reports a transform kind outside {RCT, palette,
// squeeze} (code "xfm?").
var ErrUnknownTransform = fmt.Errorf("frame: unknown transform (xfm?)")

// ErrMultiSectionUnsupported reports a frame whose TOC requires more
// than the single trivial section — i.e. more than one LF group, pass,
// or group. Each such section is its own independently byte-aligned,
// independently entropy-coded sub-stream that must be seeked to and
// decoded on its own; this driver only drives the single shared
// entropy stream of the trivial layout, so it refuses rather than
// silently misdecoding a multi-section frame by reading it as one
// contiguous stream (code "mgrp").
var ErrMultiSectionUnsupported = fmt.Errorf("frame: multi-section LF-group/pass-group layout unsupported (mgrp)")

const (
	groupDim   = 256
	lfGroupDim = groupDim * 8
)

// TransformRecord is one entry of the global modular header's applied-
// transforms list, in forward (encode) order; the driver inverts them
// in reverse once every channel is decoded.
type TransformRecord struct {
	Kind int // 0 = RCT, 1 = palette, 2 = squeeze.

	BeginC  int
	RCTType int

	NumColours, NumDeltas, Bpp, DPred int

	Horizontal, InPlace bool
}

// GlobalModularHeader is the channel list and transform list read once
// per frame in lf_global.
type GlobalModularHeader struct {
	BitDepths  []int
	Transforms []TransformRecord
}

// Image is the decoded output of one frame: one Channel per component,
// after every recorded transform has been inverted.
type Image struct {
	Header   *Header
	Channels []*modular.Channel
}

// Driver decodes one frame's worth of codestream starting at r's
// current (byte-aligned) position.
type Driver struct {
	Width, Height int
}

// DecodeFrame reads one full frame: header, TOC, lf_global through
// pass_group sections, then inverts the recorded transforms.
func (d *Driver) DecodeFrame(r *bitio.Reader) (*Image, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if !header.IsModular {
		return nil, ErrUnsupported
	}

	width, height := d.Width, d.Height
	if header.Crop[2] > 0 {
		width, height = header.Crop[2], header.Crop[3]
	}

	numGroups := ceilDiv(width, groupDim) * ceilDiv(height, groupDim)
	numLfGroups := ceilDiv(width, lfGroupDim) * ceilDiv(height, lfGroupDim)
	numPasses := header.NumPasses
	if numPasses == 0 {
		numPasses = 1
	}

	trivial := numLfGroups == 1 && numPasses == 1 && numGroups == 1
	var toc *TOC
	if trivial {
		toc, err = ReadTrivialTOC(r)
	} else {
		toc, err = ReadTOC(r, numLfGroups, numPasses, numGroups)
	}
	if err != nil {
		return nil, err
	}
	_ = toc // consumed for stream position only; see the trivial check below.

	numChannels := int(r.U32(1, 0, 3, 0, 4, 4, 20, 8))
	bitDepths := make([]int, numChannels)
	for i := range bitDepths {
		bitDepths[i] = int(r.U(5)) + 1
	}

	numTransforms := int(r.U(4))
	transforms := make([]TransformRecord, numTransforms)
	for i := range transforms {
		kind := int(r.U(2))
		tr := TransformRecord{Kind: kind, BeginC: int(r.U32(0, 3, 8, 6, 72, 10, 1096, 13))}
		switch kind {
		case 0:
			tr.RCTType = int(r.U(6))
		case 1:
			tr.NumColours = int(r.U32(0, 8, 256, 10, 1280, 12, 5376, 16))
			tr.NumDeltas = int(r.U32(0, 0, 1, 8, 257, 10, 1281, 16))
			tr.Bpp = int(r.U(5)) + 1
			tr.DPred = int(r.U(4))
		case 2:
			tr.Horizontal = r.U(1) != 0
			tr.InPlace = r.U(1) != 0
		default:
			return nil, ErrUnknownTransform
		}
		transforms[i] = tr
	}

	hasGlobalTree := r.U(1) != 0
	var tree *matree.Tree
	if hasGlobalTree {
		tree, err = matree.Read(r)
		if err != nil {
			return nil, err
		}
	}
	r.ZeroPadToByte()

	if numChannels > 0 && tree == nil {
		return nil, ErrMissingGlobalTree
	}

	// Past lf_global, a non-trivial TOC means the pixel data is split
	// across independent per-LF-group and per-pass-group sections, each
	// its own byte-aligned entropy stream (toc.go). This driver only
	// drives the single shared stream of the trivial layout; decoding
	// a multi-section frame as if it were one contiguous stream would
	// desync silently rather than fail, so refuse instead.
	if !trivial {
		return nil, ErrMultiSectionUnsupported
	}

	channels := make([]*modular.Channel, numChannels)
	maxWidth := width
	for i := range channels {
		channels[i] = modular.NewChannel(width, height, bitDepths[i])
	}

	if tree != nil {
		dec := entropy.NewDecoder(tree.CodeSpec)
		for i, ch := range channels {
			opt := modular.DecodeOptions{Cidx: i, Sidx: 0, MaxWidth: maxWidth}
			if err := modular.DecodeChannel(r, ch, tree, dec, opt, nil); err != nil {
				return nil, err
			}
		}
		if err := dec.Finish(r); err != nil {
			return nil, err
		}
	}
	r.ZeroPadToByte()

	for i := len(transforms) - 1; i >= 0; i-- {
		tr := transforms[i]
		switch tr.Kind {
		case 0:
			if tr.BeginC+3 > len(channels) {
				return nil, ErrUnknownTransform
			}
			trio := [3]*modular.Channel{channels[tr.BeginC], channels[tr.BeginC+1], channels[tr.BeginC+2]}
			if err := modular.InverseRCT(trio, tr.RCTType); err != nil {
				return nil, err
			}
		case 1:
			// Meta channel 0 is the palette table; the index channel
			// follows at BeginC+1, and the restored colour channels
			// replace BeginC+1..BeginC+numC.
			if len(channels) == 0 {
				return nil, ErrUnknownTransform
			}
			palette := channels[0]
			if tr.BeginC+1 >= len(channels) {
				return nil, ErrUnknownTransform
			}
			index := channels[tr.BeginC+1]
			numC := palette.Height
			out := make([]*modular.Channel, numC)
			for c := range out {
				out[c] = modular.NewChannel(index.Width, index.Height, bitDepths[0])
			}
			if err := modular.InversePalette(palette, index, out, tr.NumColours, tr.NumDeltas, tr.Bpp, tr.DPred); err != nil {
				return nil, err
			}
			replacement := append([]*modular.Channel{}, channels[:tr.BeginC+1]...)
			replacement = append(replacement, out...)
			if tr.BeginC+2 < len(channels) {
				replacement = append(replacement, channels[tr.BeginC+2:]...)
			}
			channels = replacement
		case 2:
			if tr.BeginC+1 >= len(channels) {
				return nil, ErrUnknownTransform
			}
			merged, err := modular.InverseSqueeze(channels[tr.BeginC], channels[tr.BeginC+1], tr.Horizontal, tr.InPlace)
			if err != nil {
				return nil, err
			}
			replacement := append([]*modular.Channel{}, channels[:tr.BeginC]...)
			replacement = append(replacement, merged)
			if tr.BeginC+2 < len(channels) {
				replacement = append(replacement, channels[tr.BeginC+2:]...)
			}
			channels = replacement
		default:
			return nil, ErrUnknownTransform
		}
	}

	return &Image{Header: header, Channels: channels}, nil
}

func ceilDiv(a, b int) int {
	if a == 0 {
		return 1
	}
	return (a + b - 1) / b
}
