// Package jxl decodes the modular (lossless) profile of a JPEG XL still
// image: container demuxing, prefix/rANS entropy coding, the
// meta-adaptive tree, the per-pixel predictor pipeline, and the inverse
// colour/palette/squeeze transforms. VarDCT (lossy DCT) frames parse
// their headers but are not numerically decoded; see internal/vardct.
package jxl
