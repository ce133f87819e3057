package systems

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/** @brief The FIFO window size the cache optimizer models. */
const vertexCacheWindow = 32

const invalidRemap = ^uint32(0)

// Reindex removes duplicate vertices and returns the deduplicated vertex
// array together with a rewritten index list. A nil index list means the
// input is unindexed and every three consecutive vertices form a triangle.
func Reindex(vertices []metadata.Vertex, indices []uint32) ([]metadata.Vertex, []uint32, error) {
	if len(indices) == 0 {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		err := fmt.Errorf("index count %d is not a multiple of 3", len(indices))
		core.LogError(err.Error())
		return nil, nil, err
	}

	remap := make(map[metadata.Vertex]uint32, len(vertices))
	outVertices := make([]metadata.Vertex, 0, len(vertices))
	outIndices := make([]uint32, len(indices))

	for i, index := range indices {
		if index >= uint32(len(vertices)) {
			err := fmt.Errorf("index %d out of range for %d vertices", index, len(vertices))
			core.LogError(err.Error())
			return nil, nil, err
		}
		v := vertices[index]
		slot, seen := remap[v]
		if !seen {
			slot = uint32(len(outVertices))
			outVertices = append(outVertices, v)
			remap[v] = slot
		}
		outIndices[i] = slot
	}
	return outVertices, outIndices, nil
}

// OptimizeVertexCache reorders triangles so vertex references cluster inside
// a FIFO cache window. Triangles sharing vertices with recently emitted ones
// are pulled forward; winding is preserved.
func OptimizeVertexCache(indices []uint32, vertexCount uint32) []uint32 {
	triangleCount := len(indices) / 3
	if triangleCount <= 1 {
		return append([]uint32(nil), indices...)
	}

	// Vertex to triangle adjacency in two flat arrays.
	counts := make([]uint32, vertexCount)
	for _, index := range indices {
		counts[index]++
	}
	offsets := make([]uint32, vertexCount+1)
	for v := uint32(0); v < vertexCount; v++ {
		offsets[v+1] = offsets[v] + counts[v]
	}
	adjacency := make([]uint32, len(indices))
	fill := make([]uint32, vertexCount)
	for t := 0; t < triangleCount; t++ {
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			adjacency[offsets[v]+fill[v]] = uint32(t)
			fill[v]++
		}
	}

	emitted := make([]bool, triangleCount)
	out := make([]uint32, 0, len(indices))
	// Candidate triangles adjacent to recently used vertices, most recent
	// first so emission stays inside the cache window.
	candidates := make([]uint32, 0, vertexCacheWindow*3)
	cursor := 0

	emit := func(t uint32) {
		emitted[t] = true
		for k := 0; k < 3; k++ {
			v := indices[int(t)*3+k]
			out = append(out, v)
			for a := offsets[v]; a < offsets[v+1]; a++ {
				if next := adjacency[a]; !emitted[next] {
					candidates = append(candidates, next)
				}
			}
		}
	}

	for len(out) < len(indices) {
		var t uint32
		found := false
		for len(candidates) > 0 {
			t = candidates[len(candidates)-1]
			candidates = candidates[:len(candidates)-1]
			if !emitted[t] {
				found = true
				break
			}
		}
		if !found {
			for emitted[cursor] {
				cursor++
			}
			t = uint32(cursor)
		}
		emit(t)
	}
	return out
}

// OptimizeVertexFetch reorders the vertex array into first-use order and
// remaps the index list to match, so the GPU walks vertex memory forward.
func OptimizeVertexFetch(vertices []metadata.Vertex, indices []uint32) ([]metadata.Vertex, []uint32) {
	remap := make([]uint32, len(vertices))
	for i := range remap {
		remap[i] = invalidRemap
	}

	outVertices := make([]metadata.Vertex, 0, len(vertices))
	outIndices := make([]uint32, len(indices))
	for i, index := range indices {
		if remap[index] == invalidRemap {
			remap[index] = uint32(len(outVertices))
			outVertices = append(outVertices, vertices[index])
		}
		outIndices[i] = remap[index]
	}
	return outVertices, outIndices
}

// BuildMeshlets greedily partitions the triangle list into meshlets bounded
// by the vertex and triangle budgets. No culling metadata is computed; the
// decomposition is flat. Returns the meshlets plus the two shared streams
// their offset/count pairs index into.
func BuildMeshlets(indices []uint32) ([]metadata.Meshlet, []uint32, []uint8) {
	var meshlets []metadata.Meshlet
	var meshletVertices []uint32
	var meshletTriangles []uint8

	local := make(map[uint32]uint8, metadata.MaxMeshletVertices)
	current := metadata.Meshlet{}

	seal := func() {
		meshlets = append(meshlets, current)
		current = metadata.Meshlet{
			VertexOffset:   uint32(len(meshletVertices)),
			TriangleOffset: uint32(len(meshletTriangles)),
		}
		for k := range local {
			delete(local, k)
		}
	}

	for t := 0; t < len(indices)/3; t++ {
		a, b, c := indices[t*3], indices[t*3+1], indices[t*3+2]

		needed := uint32(0)
		for _, v := range [3]uint32{a, b, c} {
			if _, ok := local[v]; !ok {
				needed++
			}
		}
		// The triangle may introduce a vertex it shares with an earlier slot
		// of itself, so needed can overcount for degenerate triangles; the
		// budget check stays conservative.
		if current.VertexCount+needed > metadata.MaxMeshletVertices ||
			current.TriangleCount+1 > metadata.MaxMeshletTriangles {
			seal()
		}

		for _, v := range [3]uint32{a, b, c} {
			if _, ok := local[v]; !ok {
				local[v] = uint8(current.VertexCount)
				meshletVertices = append(meshletVertices, v)
				current.VertexCount++
			}
		}
		meshletTriangles = append(meshletTriangles, local[a], local[b], local[c])
		current.TriangleCount++
	}

	if current.TriangleCount > 0 {
		meshlets = append(meshlets, current)
	}
	return meshlets, meshletVertices, meshletTriangles
}

// BuildMeshletGeometry runs the full mesh optimization pipeline: vertex
// dedupe, cache-order optimization, fetch-order optimization, then meshlet
// partitioning. The step order matters; swapping any two degrades either
// locality or meshlet packing.
func BuildMeshletGeometry(vertices []metadata.Vertex, indices []uint32) (*metadata.MeshletGeometry, error) {
	if len(vertices) == 0 {
		err := fmt.Errorf("mesh has no vertices")
		core.LogError(err.Error())
		return nil, err
	}

	outVertices, outIndices, err := Reindex(vertices, indices)
	if err != nil {
		return nil, err
	}
	outIndices = OptimizeVertexCache(outIndices, uint32(len(outVertices)))
	outVertices, outIndices = OptimizeVertexFetch(outVertices, outIndices)
	meshlets, meshletVertices, meshletTriangles := BuildMeshlets(outIndices)

	return &metadata.MeshletGeometry{
		Vertices:         outVertices,
		Indices:          outIndices,
		Meshlets:         meshlets,
		MeshletVertices:  meshletVertices,
		MeshletTriangles: meshletTriangles,
	}, nil
}
