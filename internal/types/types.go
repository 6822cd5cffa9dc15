// Package types defines the grid value types shared by the critter packages.
//
// Coordinates are (X, Y) with X growing to the right and Y growing downward,
// so the "front" heading points toward smaller Y.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// HashSize is the size of a state or program digest.
const HashSize = 32

var (
	// ErrInvalidHash is returned when a hash has invalid length.
	ErrInvalidHash = errors.New("invalid hash: must be 32 bytes")

	// ErrInvalidColor is returned when a color is not of the form #rrggbb.
	ErrInvalidColor = errors.New("invalid color: must be #rrggbb")

	// ErrInvalidBearing is returned for angles that are not a multiple of 45 degrees.
	ErrInvalidBearing = errors.New("invalid bearing: must be a multiple of 45")
)

// Point is a grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p shifted by o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// In reports whether p lies inside a width x height grid.
func (p Point) In(width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Heading is one of eight directions, in degrees clockwise from front.
type Heading int

// The eight headings, 45 degrees apart.
const (
	Front      Heading = 0
	FrontRight Heading = 45
	Right      Heading = 90
	RearRight  Heading = 135
	Rear       Heading = 180
	RearLeft   Heading = 225
	Left       Heading = 270
	FrontLeft  Heading = 315
)

// Headings lists every heading in clockwise order starting at Front.
// Random heading draws index into this slice, so its order is fixed.
var Headings = [8]Heading{Front, FrontRight, Right, RearRight, Rear, RearLeft, Left, FrontLeft}

var headingOffsets = map[Heading]Point{
	Front:      {0, -1},
	FrontRight: {+1, -1},
	Right:      {+1, 0},
	RearRight:  {+1, +1},
	Rear:       {0, +1},
	RearLeft:   {-1, +1},
	Left:       {-1, 0},
	FrontLeft:  {-1, -1},
}

var headingNames = map[Heading]string{
	Front:      "front",
	FrontRight: "front-right",
	Right:      "right",
	RearRight:  "rear-right",
	Rear:       "rear",
	RearLeft:   "rear-left",
	Left:       "left",
	FrontLeft:  "front-left",
}

// Offset returns the unit step for the heading.
func (h Heading) Offset() Point {
	return headingOffsets[h]
}

// Turn returns the heading rotated by bearing, wrapped into [0, 360).
func (h Heading) Turn(b Bearing) Heading {
	return Heading(normalizeDegrees(int(h) + int(b)))
}

// Valid reports whether h is one of the eight headings.
func (h Heading) Valid() bool {
	_, ok := headingOffsets[h]
	return ok
}

func (h Heading) String() string {
	if name, ok := headingNames[h]; ok {
		return name
	}
	return fmt.Sprintf("heading(%d)", int(h))
}

// Bearing is an angular offset relative to a heading. Zero means straight ahead.
type Bearing int

// BearingFromDegrees validates and normalizes a bearing given in degrees.
// Negative multiples of 45 are accepted and wrapped, so -45 becomes 315.
func BearingFromDegrees(deg int64) (Bearing, error) {
	if deg%45 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBearing, deg)
	}
	return Bearing(normalizeDegrees(int(deg % 360))), nil
}

func normalizeDegrees(d int) int {
	d %= 360
	if d < 0 {
		d += 360
	}
	return d
}

// Content is what a critter senses in a neighbouring cell.
type Content uint8

const (
	Empty Content = iota
	Wall
	Enemy
	Ally
)

func (c Content) String() string {
	switch c {
	case Empty:
		return "empty"
	case Wall:
		return "wall"
	case Enemy:
		return "enemy"
	case Ally:
		return "ally"
	default:
		return "unknown"
	}
}

// Color is a 24-bit RGB display color.
type Color struct {
	R, G, B uint8
}

// String returns the color as a CSS hex string.
func (c Color) String() string {
	return "#" + hex.EncodeToString([]byte{c.R, c.G, c.B})
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	if len(text) != 7 || text[0] != '#' {
		return ErrInvalidColor
	}
	var rgb [3]byte
	if _, err := hex.Decode(rgb[:], text[1:]); err != nil {
		return ErrInvalidColor
	}
	*c = Color{R: rgb[0], G: rgb[1], B: rgb[2]}
	return nil
}

// Hash is a 32-byte digest, rendered in base58.
type Hash [HashSize]byte

// HashFromBytes creates a Hash from a byte slice.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, ErrInvalidHash
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBase58 parses a base58-encoded hash.
func HashFromBase58(s string) (Hash, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("base58 decode: %w", err)
	}
	return HashFromBytes(data)
}

// String returns the base58-encoded representation.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromBase58(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
