package cache

import (
	"encoding/binary"
	"errors"
)

// EncodeUint32s packs values little-endian for storage as a blob.
func EncodeUint32s(values []uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

// DecodeUint32s reverses EncodeUint32s.
func DecodeUint32s(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, errors.New("cached fingerprint length is not a multiple of 4")
	}
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return out, nil
}
