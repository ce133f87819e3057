package systems

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func gridMesh(t *testing.T, n int) ([]metadata.Vertex, []uint32) {
	t.Helper()
	vertices := make([]metadata.Vertex, 0, (n+1)*(n+1))
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			vertices = append(vertices, metadata.Vertex{
				Position: mgl32.Vec3{float32(x), float32(y), 0},
				Normal:   mgl32.Vec3{0, 0, 1},
				UV:       mgl32.Vec2{float32(x) / float32(n), float32(y) / float32(n)},
			})
		}
	}
	indices := make([]uint32, 0, n*n*6)
	stride := uint32(n + 1)
	for y := uint32(0); y < uint32(n); y++ {
		for x := uint32(0); x < uint32(n); x++ {
			topLeft := y*stride + x
			indices = append(indices,
				topLeft, topLeft+1, topLeft+stride,
				topLeft+1, topLeft+stride+1, topLeft+stride,
			)
		}
	}
	return vertices, indices
}

// canonicalTriangles maps every triangle to its three vertex values sorted
// by position, so triangle identity survives any index or vertex reorder.
func canonicalTriangles(t *testing.T, vertices []metadata.Vertex, indices []uint32) []([3]metadata.Vertex) {
	t.Helper()
	require.Zero(t, len(indices)%3)
	out := make([]([3]metadata.Vertex), 0, len(indices)/3)
	for i := 0; i < len(indices); i += 3 {
		tri := [3]metadata.Vertex{vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]}
		sort.Slice(tri[:], func(a, b int) bool {
			pa, pb := tri[a].Position, tri[b].Position
			if pa.X() != pb.X() {
				return pa.X() < pb.X()
			}
			if pa.Y() != pb.Y() {
				return pa.Y() < pb.Y()
			}
			return pa.Z() < pb.Z()
		})
		out = append(out, tri)
	}
	sort.Slice(out, func(a, b int) bool {
		pa, pb := out[a][0].Position, out[b][0].Position
		if pa.X() != pb.X() {
			return pa.X() < pb.X()
		}
		if pa.Y() != pb.Y() {
			return pa.Y() < pb.Y()
		}
		if out[a][1].Position.X() != out[b][1].Position.X() {
			return out[a][1].Position.X() < out[b][1].Position.X()
		}
		return out[a][1].Position.Y() < out[b][1].Position.Y()
	})
	return out
}

// meshletTriangleList reassembles the global index list the meshlets encode.
func meshletTriangleList(t *testing.T, geometry *metadata.MeshletGeometry) []uint32 {
	t.Helper()
	var indices []uint32
	for _, m := range geometry.Meshlets {
		for tri := uint32(0); tri < m.TriangleCount; tri++ {
			for k := uint32(0); k < 3; k++ {
				local := geometry.MeshletTriangles[m.TriangleOffset+tri*3+k]
				require.Less(t, uint32(local), m.VertexCount)
				indices = append(indices, geometry.MeshletVertices[m.VertexOffset+uint32(local)])
			}
		}
	}
	return indices
}

func simulateCacheMisses(indices []uint32, window int) int {
	cache := make([]uint32, 0, window)
	misses := 0
	for _, index := range indices {
		hit := false
		for _, cached := range cache {
			if cached == index {
				hit = true
				break
			}
		}
		if hit {
			continue
		}
		misses++
		if len(cache) == window {
			cache = cache[1:]
		}
		cache = append(cache, index)
	}
	return misses
}

func TestReindexRemovesDuplicates(t *testing.T) {
	// A quad given as two unindexed triangles shares two corners.
	quad := []metadata.Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{1, 1, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}

	vertices, indices, err := Reindex(quad, nil)
	require.NoError(t, err)

	assert.Len(t, vertices, 4)
	require.Len(t, indices, 6)
	assert.Equal(t, canonicalTriangles(t, quad, []uint32{0, 1, 2, 3, 4, 5}), canonicalTriangles(t, vertices, indices))
}

func TestReindexRejectsPartialTriangle(t *testing.T) {
	vertices := []metadata.Vertex{{}, {}, {}}
	_, _, err := Reindex(vertices, []uint32{0, 1})
	assert.Error(t, err)
}

func TestReindexRejectsOutOfRangeIndex(t *testing.T) {
	vertices := []metadata.Vertex{{}, {}, {}}
	_, _, err := Reindex(vertices, []uint32{0, 1, 7})
	assert.Error(t, err)
}

func TestOptimizeVertexFetchOrdersByFirstUse(t *testing.T) {
	vertices, indices := gridMesh(t, 4)
	outVertices, outIndices := OptimizeVertexFetch(vertices, indices)

	require.Len(t, outVertices, len(vertices))
	next := uint32(0)
	seen := make(map[uint32]bool, len(outVertices))
	for _, index := range outIndices {
		if !seen[index] {
			assert.Equal(t, next, index, "first uses must count up from zero")
			seen[index] = true
			next++
		}
	}
	assert.Equal(t, canonicalTriangles(t, vertices, indices), canonicalTriangles(t, outVertices, outIndices))
}

func TestOptimizeVertexCacheReducesMisses(t *testing.T) {
	vertices, indices := gridMesh(t, 16)

	// Scramble the triangle order to destroy locality.
	rng := rand.New(rand.NewSource(42))
	scrambled := append([]uint32(nil), indices...)
	triangleCount := len(scrambled) / 3
	for i := triangleCount - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		for k := 0; k < 3; k++ {
			scrambled[i*3+k], scrambled[j*3+k] = scrambled[j*3+k], scrambled[i*3+k]
		}
	}

	optimized := OptimizeVertexCache(scrambled, uint32(len(vertices)))
	require.Len(t, optimized, len(indices))
	assert.Equal(t, canonicalTriangles(t, vertices, scrambled), canonicalTriangles(t, vertices, optimized))

	assert.Less(t,
		simulateCacheMisses(optimized, vertexCacheWindow),
		simulateCacheMisses(scrambled, vertexCacheWindow),
	)
}

func TestMeshletCoverage(t *testing.T) {
	vertices, indices := gridMesh(t, 16)

	geometry, err := BuildMeshletGeometry(vertices, indices)
	require.NoError(t, err)
	require.NotEmpty(t, geometry.Meshlets)

	// Every input triangle appears in exactly one meshlet.
	reassembled := meshletTriangleList(t, geometry)
	require.Len(t, reassembled, len(indices))
	assert.Equal(t,
		canonicalTriangles(t, vertices, indices),
		canonicalTriangles(t, geometry.Vertices, reassembled),
	)

	for i, m := range geometry.Meshlets {
		assert.LessOrEqual(t, m.VertexCount, uint32(metadata.MaxMeshletVertices), "meshlet %d", i)
		assert.LessOrEqual(t, m.TriangleCount, uint32(metadata.MaxMeshletTriangles), "meshlet %d", i)
		assert.NotZero(t, m.TriangleCount, "meshlet %d", i)
	}
}

func TestMeshletStreamOffsetsAreContiguous(t *testing.T) {
	vertices, indices := gridMesh(t, 8)

	geometry, err := BuildMeshletGeometry(vertices, indices)
	require.NoError(t, err)

	vertexCursor, triangleCursor := uint32(0), uint32(0)
	for i, m := range geometry.Meshlets {
		assert.Equal(t, vertexCursor, m.VertexOffset, "meshlet %d", i)
		assert.Equal(t, triangleCursor, m.TriangleOffset, "meshlet %d", i)
		vertexCursor += m.VertexCount
		triangleCursor += m.TriangleCount * 3
	}
	assert.Equal(t, int(vertexCursor), len(geometry.MeshletVertices))
	assert.Equal(t, int(triangleCursor), len(geometry.MeshletTriangles))
}

func TestSingleTriangleMeshlet(t *testing.T) {
	vertices := []metadata.Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}

	geometry, err := BuildMeshletGeometry(vertices, []uint32{0, 1, 2})
	require.NoError(t, err)

	require.Len(t, geometry.Meshlets, 1)
	assert.Equal(t, uint32(3), geometry.Meshlets[0].VertexCount)
	assert.Equal(t, uint32(1), geometry.Meshlets[0].TriangleCount)
}

func TestEmptyMeshRejected(t *testing.T) {
	_, err := BuildMeshletGeometry(nil, nil)
	assert.Error(t, err)
}
