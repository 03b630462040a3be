// Package goose turns decoded bitmaps into level editor platform lists.
//
// Every kept pixel becomes one square platform serialized as
//
//	X:<x>;Y:<y>;W:<w>;H:<h>;T:1;R:<r>;G:<g>;B:<b>;|
//
// with tokens concatenated without any separator.
package goose

import (
	"strconv"

	"bmp2goose/bitmap"
)

// outputScale converts level units into editor units. It is applied to
// positions only, at serialization time.
const outputScale float32 = 0.6

type Params struct {
	// Scale is the side of each platform, in level units. Must be > 0.
	Scale   float32
	XOffset float32
	YOffset float32
	// ExcludeWhite drops pixels whose channels are all 255.
	ExcludeWhite bool
}

type Platform struct {
	X, Y    float32
	W, H    float32
	R, G, B uint8
}

// NewPlatform maps the pixel at column x, row y of g to a platform.
func NewPlatform(x, y uint32, g *bitmap.Grid, p Params) Platform {
	px := g.Pixel(x, y)
	return Platform{
		// The explicit conversions round each product to float32 and keep
		// the compiler from fusing it with the addition.
		X: float32(float32(x)*p.Scale) + p.XOffset,
		Y: float32(float32(y)*p.Scale) + p.YOffset,
		W: p.Scale,
		H: p.Scale,
		R: px.R,
		G: px.G,
		B: px.B,
	}
}

// AppendToken appends the serialized platform to dst.
func (pl Platform) AppendToken(dst []byte) []byte {
	dst = append(dst, "X:"...)
	dst = appendFloat(dst, pl.X*outputScale)
	dst = append(dst, ";Y:"...)
	dst = appendFloat(dst, pl.Y*outputScale)
	dst = append(dst, ";W:"...)
	dst = appendFloat(dst, pl.W)
	dst = append(dst, ";H:"...)
	dst = appendFloat(dst, pl.H)
	dst = append(dst, ";T:1;R:"...)
	dst = appendFloat(dst, channel(pl.R))
	dst = append(dst, ";G:"...)
	dst = appendFloat(dst, channel(pl.G))
	dst = append(dst, ";B:"...)
	dst = appendFloat(dst, channel(pl.B))
	return append(dst, ";|"...)
}

func (pl Platform) Token() string {
	return string(pl.AppendToken(nil))
}

func channel(c uint8) float32 {
	return float32(c) / 255
}

// appendFloat writes the shortest decimal that reads back as f, without an
// exponent.
func appendFloat(dst []byte, f float32) []byte {
	return strconv.AppendFloat(dst, float64(f), 'f', -1, 32)
}
