/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package adapter

import "fmt"

// WriteConcern names the acknowledgment policy a flush is performed
// under. One concern applies uniformly to every record in a batch call;
// adapters map it to whatever their store offers and ignore levels the
// store cannot express.
type WriteConcern int

const (
	// Acknowledged waits for the store to confirm the write.
	Acknowledged WriteConcern = iota

	// Unacknowledged sends the write without waiting for confirmation.
	Unacknowledged

	// Majority waits for confirmation from a majority of replicas, on
	// stores that replicate.
	Majority
)

func (wc WriteConcern) String() string {
	switch wc {
	case Acknowledged:
		return "acknowledged"
	case Unacknowledged:
		return "unacknowledged"
	case Majority:
		return "majority"
	default:
		return fmt.Sprintf("writeconcern(%d)", int(wc))
	}
}

// ParseWriteConcern maps a configuration string to a WriteConcern.
func ParseWriteConcern(s string) (WriteConcern, error) {
	switch s {
	case "", "acknowledged":
		return Acknowledged, nil
	case "unacknowledged":
		return Unacknowledged, nil
	case "majority":
		return Majority, nil
	default:
		return Acknowledged, fmt.Errorf("unknown write concern %q", s)
	}
}
