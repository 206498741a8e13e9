package kernel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// stlHeaderSize is the fixed size of the binary STL header.
const stlHeaderSize = 80

// WriteSTL writes meshes as a single binary STL solid. Per-triangle normals
// are taken from the first vertex normal of each triangle.
func WriteSTL(w io.Writer, meshes ...*Mesh) error {
	var triangles uint32
	for _, m := range meshes {
		if len(m.Indices)%3 != 0 {
			return fmt.Errorf("kernel: mesh %q has %d indices, not a multiple of 3", m.PartName, len(m.Indices))
		}
		triangles += uint32(m.TriangleCount())
	}

	bw := bufio.NewWriter(w)
	var header [stlHeaderSize]byte
	copy(header[:], "cathedral spiral layout")
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, triangles); err != nil {
		return err
	}

	var rec [50]byte
	putVec := func(off int, v [3]float32) {
		for i, c := range v {
			binary.LittleEndian.PutUint32(rec[off+4*i:], math.Float32bits(c))
		}
	}
	for _, m := range meshes {
		for t := 0; t+2 < len(m.Indices); t += 3 {
			a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
			if int(max(a, b, c)) >= m.VertexCount() {
				return fmt.Errorf("kernel: mesh %q index out of range", m.PartName)
			}
			var n [3]float32
			if len(m.Normals) == len(m.Vertices) {
				n = vec(m.Normals, a)
			}
			putVec(0, n)
			putVec(12, vec(m.Vertices, a))
			putVec(24, vec(m.Vertices, b))
			putVec(36, vec(m.Vertices, c))
			// bytes 48-49: attribute byte count, always zero
			if _, err := bw.Write(rec[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func vec(flat []float32, idx uint32) [3]float32 {
	i := int(idx) * 3
	return [3]float32{flat[i], flat[i+1], flat[i+2]}
}
