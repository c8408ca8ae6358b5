package hnsw

// Stats is a point-in-time summary of the graph, intended for polling by an
// external telemetry collaborator instead of inspecting index internals.
type Stats struct {
	// NumVectors is the number of live vectors.
	NumVectors int

	// NumConnections is the total number of directed edges across all layers.
	NumConnections int

	// AvgConnections is NumConnections / NumVectors (0 for an empty index).
	AvgConnections float64

	// MaxLayer is the highest layer present in the graph.
	MaxLayer int

	// EntryPoint is the id every traversal starts from ("" when empty).
	EntryPoint string
}

// Stats returns statistics about the graph.
func (i *Index) Stats() Stats {
	s := Stats{
		NumVectors: len(i.nodes),
		MaxLayer:   i.topLayer,
	}

	for _, n := range i.nodes {
		for _, conns := range n.conns {
			s.NumConnections += len(conns)
		}
	}

	if s.NumVectors > 0 {
		s.AvgConnections = float64(s.NumConnections) / float64(s.NumVectors)
	}

	if i.hasEntry {
		s.EntryPoint = i.nodes[i.entry].record.ID
	}

	return s
}
