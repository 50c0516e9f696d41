package repack

import "fmt"

// DefaultLevel is used by Encode when the caller has no preference.
const DefaultLevel = 9

// Layer selects how much of a compressed archive Decode strips.
//
//	Full:      a-dir.tar.zst => a-dir
//	OuterMost: a-dir.tar.zst => a-dir.tar
type Layer int

const (
	OuterMost Layer = iota
	Full
)

func (l Layer) String() string {
	if l == Full {
		return "full"
	}
	return "outermost"
}

// Kind is the direction of an Operation.
type Kind int

const (
	KindDecode Kind = iota
	KindEncode
)

// Operation is either Decode(layer) or Encode{level}.
type Operation struct {
	Kind  Kind
	Layer Layer
	Level int
}

// Decode strips exactly one compression layer.
func Decode() Operation {
	return Operation{Kind: KindDecode, Layer: OuterMost}
}

// DecodeFull fully decompresses an archive. No transcoder path dispatches it yet.
func DecodeFull() Operation {
	return Operation{Kind: KindDecode, Layer: Full}
}

// Encode compresses with the given level.
func Encode(level int) Operation {
	return Operation{Kind: KindEncode, Level: level}
}

// EncodeDefault compresses with DefaultLevel.
func EncodeDefault() Operation {
	return Encode(DefaultLevel)
}

func (o Operation) String() string {
	if o.Kind == KindEncode {
		return fmt.Sprintf("Encode{level: %d}", o.Level)
	}
	return fmt.Sprintf("Decode(%s)", o.Layer)
}
