package ast

// PrimitiveArity is the fixed arity table from spec §3: primitives are
// either nullary or unary. The resolver consults this table before falling
// back to decl/type-parameter arity.
var PrimitiveArity = map[string]int{
	"Void":      0,
	"Bool":      0,
	"Int8":      0,
	"Int16":     0,
	"Int32":     0,
	"Int64":     0,
	"Word8":     0,
	"Word16":    0,
	"Word32":    0,
	"Word64":    0,
	"Float":     0,
	"Double":    0,
	"String":    0,
	"Bytes":     0,
	"Json":      0,
	"TypeToken": 0,
	"Vector":    1,
	"StringMap": 1,
	"Nullable":  1,
}

// IsPrimitive reports whether name names one of the fixed primitive types.
func IsPrimitive(name string) bool {
	_, ok := PrimitiveArity[name]
	return ok
}

// numeric primitive bounds, used by the default-value checker (spec §4.4).
var integerBounds = map[string][2]int64{
	"Int8":   {-1 << 7, 1<<7 - 1},
	"Int16":  {-1 << 15, 1<<15 - 1},
	"Int32":  {-1 << 31, 1<<31 - 1},
	"Int64":  {-1 << 63, 1<<63 - 1},
	"Word8":  {0, 1<<8 - 1},
	"Word16": {0, 1<<16 - 1},
	"Word32": {0, 1<<32 - 1},
	// Word64's upper bound does not fit in an int64; checked specially.
}

// IntegerBounds returns the inclusive [min, max] bounds for a signed
// integer/word primitive, and ok=false for Word64 or non-integer names
// (Word64 is bounds-checked separately because it overflows int64).
func IntegerBounds(name string) (lo, hi int64, ok bool) {
	b, found := integerBounds[name]
	if !found {
		return 0, 0, false
	}

	return b[0], b[1], true
}

// IsIntegerPrimitive reports whether name is one of the Int*/Word*
// primitives (including Word64).
func IsIntegerPrimitive(name string) bool {
	switch name {
	case "Int8", "Int16", "Int32", "Int64", "Word8", "Word16", "Word32", "Word64":
		return true
	default:
		return false
	}
}
