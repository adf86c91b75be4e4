// Package signal models traffic-light groups and phase-cycling signal
// heads that gate coordination cells.
package signal

// Type is the aspect shown by a signal head, modelled after the SUMO
// single-character phase codes used by the original dataset.
type Type int

const (
	Undefined Type = iota
	Red
	Yellow
	Green
	GreenPriority
	GreenRight
	RedYellow
	Blinking
	NoSignal
)

var fromCode = map[byte]Type{
	'r': Red,
	'y': Yellow,
	'G': Green,
	'g': GreenPriority,
	's': GreenRight,
	'u': RedYellow,
	'o': Blinking,
	'O': NoSignal,
}

var toCode = map[Type]string{
	Red:           "r",
	Yellow:        "y",
	Green:         "G",
	GreenPriority: "g",
	GreenRight:    "s",
	RedYellow:     "u",
	Blinking:      "o",
	NoSignal:      "O",
}

// ParseType maps a single SUMO-style phase character to a Type. Unknown
// codes map to Undefined.
func ParseType(code byte) Type {
	if t, ok := fromCode[code]; ok {
		return t
	}
	return Undefined
}

func (t Type) String() string {
	if s, ok := toCode[t]; ok {
		return s
	}
	return "undefined"
}

// Permits reports whether a vehicle may enter a cell gated by this aspect.
// Yellow and RedYellow are treated as stop aspects: a vehicle already
// past the stop line is handled by the intention stage, not here.
func (t Type) Permits() bool {
	switch t {
	case Green, GreenPriority, GreenRight, Blinking, NoSignal:
		return true
	default:
		return false
	}
}
