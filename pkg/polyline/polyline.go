// Package polyline implements the encoded polyline algorithm format used by
// map clients to draw a route from a compact string.
package polyline

import (
	"errors"
	"math"
	"strings"
)

// DefaultPrecision is the number of decimal places kept per coordinate.
const DefaultPrecision = 5

// ErrMalformed is returned by Decode for truncated or invalid input.
var ErrMalformed = errors.New("polyline: malformed input")

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Encode encodes points at DefaultPrecision.
func Encode(points []Point) string {
	return EncodeWithPrecision(points, DefaultPrecision)
}

// EncodeWithPrecision encodes points keeping precision decimal places.
func EncodeWithPrecision(points []Point, precision int) string {
	if len(points) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	var sb strings.Builder
	sb.Grow(len(points) * 8)

	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * factor))
		lon := int64(math.Round(p.Lon * factor))
		writeSigned(&sb, lat-prevLat)
		writeSigned(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

// writeSigned zig-zags v and writes it as 5-bit chunks, least significant
// first, each offset by 63 and flagged with 0x20 while more chunks follow.
func writeSigned(sb *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}

// Decode decodes a string produced at DefaultPrecision.
func Decode(s string) ([]Point, error) {
	return DecodeWithPrecision(s, DefaultPrecision)
}

// DecodeWithPrecision decodes a string produced with the given precision.
func DecodeWithPrecision(s string, precision int) ([]Point, error) {
	if s == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	var (
		points   []Point
		lat, lon int64
		pos      int
	)
	for pos < len(s) {
		dLat, next, err := readSigned(s, pos)
		if err != nil {
			return nil, err
		}
		dLon, next, err := readSigned(s, next)
		if err != nil {
			return nil, err
		}
		pos = next

		lat += dLat
		lon += dLon
		points = append(points, Point{Lat: float64(lat) / factor, Lon: float64(lon) / factor})
	}
	return points, nil
}

func readSigned(s string, pos int) (int64, int, error) {
	var (
		u     uint64
		shift uint
	)
	for {
		if pos >= len(s) || shift > 63 {
			return 0, pos, ErrMalformed
		}
		b := int(s[pos]) - 63
		pos++
		if b < 0 || b > 0x3f {
			return 0, pos, ErrMalformed
		}
		u |= uint64(b&0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	v := int64(u >> 1)
	if u&1 != 0 {
		v = ^v
	}
	return v, pos, nil
}
