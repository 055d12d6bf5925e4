package vectorindex

import (
	"encoding/binary"
	"fmt"
)

// EncodeEmbedding stores vec as packed little-endian float32s. Local rows and the Redis embedding
// cache share this layout.
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	// appending fixed-size values to a byte slice cannot fail
	b, _ := binary.Append(make([]byte, 0, 4*len(vec)), binary.LittleEndian, vec)
	return b
}

func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vectorindex: embedding blob of %d bytes is not a whole number of float32s", len(b))
	}
	vec := make([]float32, len(b)/4)
	if _, err := binary.Decode(b, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("vectorindex: decode embedding: %w", err)
	}
	return vec, nil
}
