package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"isovoxel/internal/sim/voxel"
)

// EncodeRLE encodes a sequence of voxel types into base64(varint pairs).
// The pairs are (type, run_len) repeated.
func EncodeRLE(cells []voxel.Type) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(cells) {
		v := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. limit caps the decoded length; runs past it are an error.
func DecodeRLE(b64 string, limit int) ([]voxel.Type, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]voxel.Type, 0, limit)
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		t := voxel.Type(v)
		if v > 0xFF || !t.Valid() {
			return nil, fmt.Errorf("voxel type out of range: %d", v)
		}
		if uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run overflows %d cells", limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, t)
		}
	}
	return out, nil
}
