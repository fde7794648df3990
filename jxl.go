package jxl

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
	"github.com/lifthrasiir/j40-sub000/internal/container"
	"github.com/lifthrasiir/j40-sub000/internal/frame"
)

// Error is a 4-character sentinel decode error, re-exported from
// internal/bitio and internal/container failures so callers can match on
// Code without reaching into internal/*. Errors raised by the other
// internal packages are returned as they are, not wrapped in Error.
type Error struct {
	Code   [4]byte
	Offset int64
	err    error
}

func (e *Error) Error() string {
	if e.Offset != 0 {
		return fmt.Sprintf("jxl: %s at byte offset %d", e.Code, e.Offset)
	}
	return fmt.Sprintf("jxl: %s: %v", e.Code, e.err)
}

func (e *Error) Unwrap() error { return e.err }

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*bitio.Error); ok {
		var code [4]byte
		copy(code[:], string(be.Code))
		return &Error{Code: code, Offset: be.Offset, err: err}
	}
	if ce, ok := err.(*container.Error); ok {
		var code [4]byte
		copy(code[:], string(ce.Code))
		return &Error{Code: code, err: err}
	}
	return err
}

// DecodeOptions configures a decode call. The zero value is the
// default: decode every frame.
type DecodeOptions struct {
	// MaxFrames caps how many frames Decode processes, 0 meaning
	// unlimited. Useful for bounding work on untrusted input.
	MaxFrames int

	// AllowPartialTOC is accepted but not read by Decode: TOC handling is
	// the same whichever value it holds, and a frame whose TOC needs more
	// than one section is rejected either way.
	AllowPartialTOC bool
}

// Metadata is the subset of image header fields available without
// decoding any frame's pixel data.
type Metadata struct {
	Width, Height int
	BitDepth      int
	HasAlpha      bool
	ICCProfile    []byte
}

// Image is one decoded frame: its channel planes plus whether the frame
// header marked it as the last frame.
type Image struct {
	Width, Height int
	Channels      [][]int32 // one row-major plane per channel, after inverse transforms.
	IsLast        bool
}

// DecodeConfig reads just enough of data to report image dimensions and
// colour metadata, without decoding any frame.
func DecodeConfig(data []byte) (*Metadata, error) {
	_, meta, err := openCodestream(data)
	if err != nil {
		return nil, wrapError(err)
	}
	return meta, nil
}

// DecodeMetadata is an alias for DecodeConfig kept for callers that
// prefer the more explicit name.
func DecodeMetadata(data []byte) (*Metadata, error) {
	return DecodeConfig(data)
}

// Decode fully decodes data (a raw codestream or a JXL container) into
// its sequence of frames.
func Decode(data []byte, opts DecodeOptions) ([]*Image, error) {
	r, meta, err := openCodestream(data)
	if err != nil {
		return nil, wrapError(err)
	}

	driver := &frame.Driver{Width: meta.Width, Height: meta.Height}

	var images []*Image
	for {
		if opts.MaxFrames > 0 && len(images) >= opts.MaxFrames {
			break
		}
		img, err := driver.DecodeFrame(r)
		if err != nil {
			return images, wrapError(err)
		}

		channels := make([][]int32, len(img.Channels))
		for i, ch := range img.Channels {
			channels[i] = ch.Data
		}
		out := &Image{
			Width:    meta.Width,
			Height:   meta.Height,
			Channels: channels,
			IsLast:   img.Header.IsLast,
		}
		images = append(images, out)

		if img.Header.IsLast {
			break
		}
		if r.Err() != nil {
			return images, wrapError(r.Err())
		}
	}
	return images, nil
}

// openCodestream demuxes data's framing (raw or container) and reads
// the basic image header shared by every frame.
func openCodestream(data []byte) (*bitio.Reader, *Metadata, error) {
	framing, err := container.Sniff(data)
	if err != nil {
		return nil, nil, err
	}

	var r *bitio.Reader
	switch framing {
	case container.FramingRaw:
		r = bitio.NewReader(data)
		r.Skip(16) // FF 0A signature.
	case container.FramingContainer:
		first, source, err := container.Demux(data)
		if err != nil {
			return nil, nil, err
		}
		r = bitio.NewContainerReader(first, source)
		r.Skip(16)
	}

	meta, err := readBasicMetadata(r)
	if err != nil {
		return nil, nil, err
	}
	return r, meta, nil
}

// readBasicMetadata reads the image-header fields that precede any
// frame header: dimensions, nominal bit depth, and whether an alpha
// channel is declared. The ICC profile, when present, follows as a
// variable-length byte blob.
func readBasicMetadata(r *bitio.Reader) (*Metadata, error) {
	m := &Metadata{}
	m.Width = int(r.U32(1, 9, 513, 13, 4609, 18, 262657, 30))
	m.Height = int(r.U32(1, 9, 513, 13, 4609, 18, 262657, 30))
	m.BitDepth = int(r.U32(8, 0, 10, 0, 12, 0, 1, 6))
	m.HasAlpha = r.U(1) != 0

	haveICC := r.U(1) != 0
	if haveICC {
		n := int(r.U32(0, 0, 1, 13, 8193, 18, 270337, 30))
		m.ICCProfile = make([]byte, n)
		for i := range m.ICCProfile {
			m.ICCProfile[i] = byte(r.U(8))
		}
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
