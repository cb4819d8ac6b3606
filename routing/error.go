package routing

import "fmt"

var (
	// ErrSourceNotFound is returned when GetRoute's source node isn't
	// present in the graph.
	ErrSourceNotFound = fmt.Errorf("source node not found in graph")

	// ErrDestinationNotFound is returned when GetRoute's destination node
	// isn't present in the graph.
	ErrDestinationNotFound = fmt.Errorf("destination node not found in graph")

	// ErrMaxHopsExceeded names a non-positive max_hops. GetRoute does not
	// return it: it substitutes defaultMaxHops for any MaxHops <= 0.
	ErrMaxHopsExceeded = fmt.Errorf("max_hops must be a positive number of rounds")
)
