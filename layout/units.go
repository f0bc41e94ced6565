package layout

// This file defines unit helpers shared by the raster renderer and the vector proof renderer.

// Conversion constants between pt, mm and px (CSS px at 96 DPI).
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PxToMm = 25.4 / 96.0
	MmToPx = 1.0 / PxToMm
	PxToPt = PxToMm * MmToPt
)

// Unit represents the unit of a length value.
type Unit int

const (
	UnitPX Unit = iota // pixels, the native unit of raster layout
	UnitMM             // millimeters
	UnitPT             // points
)

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Px returns a pixel length.
func Px(v int) Length { return Length{Value: float64(v), Unit: UnitPX} }

// To converts this length to target unit.
func (l Length) To(target Unit) float64 {
	var mm float64
	switch l.Unit {
	case UnitMM:
		mm = l.Value
	case UnitPT:
		mm = l.Value * PtToMm
	default:
		mm = l.Value * PxToMm
	}
	switch target {
	case UnitMM:
		return mm
	case UnitPT:
		return mm * MmToPt
	default:
		return mm * MmToPx
	}
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }
