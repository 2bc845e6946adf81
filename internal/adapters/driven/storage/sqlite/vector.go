package sqlite

import (
	"encoding/binary"
	"math"
)

// encodeVector packs v as little-endian IEEE 754 float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

// decodeVector reverses encodeVector. Trailing bytes short of a float are ignored.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
