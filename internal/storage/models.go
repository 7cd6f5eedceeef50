package storage

import (
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/mcp-docs-assistant/internal/index"
)

// CollectionName is the single Qdrant collection holding the published build.
const CollectionName = "mcp_docs"

// Payload keys stored with every point.
const (
	FieldBuildID    = "build_id"
	FieldPath       = "path"
	FieldFile       = "file"
	FieldChunkIndex = "chunk_index"
)

// upsertBatchSize is the number of points sent per upsert request.
const upsertBatchSize = 100

// newPoint builds the point for the vector at position pos. The point id is
// the position itself so search hits map straight back to the record list.
func newPoint(buildID string, pos int, vector []float32, r index.Record) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(pos)),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			FieldBuildID:    buildID,
			FieldPath:       r.Path,
			FieldFile:       r.File,
			FieldChunkIndex: r.ChunkIndex,
		}),
	}
}

// toNeighbors converts search hits into record positions. Hits without a
// numeric id are reported as index.NotFound.
func toNeighbors(points []*qdrant.ScoredPoint) []index.Neighbor {
	out := make([]index.Neighbor, 0, len(points))
	for _, p := range points {
		pos := index.NotFound
		if id := p.GetId(); id != nil {
			if _, ok := id.GetPointIdOptions().(*qdrant.PointId_Num); ok {
				pos = int(id.GetNum())
			}
		}
		out = append(out, index.Neighbor{Position: pos, Score: p.GetScore()})
	}
	return out
}

// buildFilter restricts queries to the points of one build.
func buildFilter(buildID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(FieldBuildID, buildID),
		},
	}
}
