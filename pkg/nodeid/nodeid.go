// Package nodeid defines the identifiers used to address peers and to tell
// replicas and clients apart.
package nodeid

import "fmt"

// ID identifies a peer. Replicas and clients share the same id space; a
// configured threshold splits the space between the two roles.
type ID uint32

// Role is the kind of peer an ID denotes.
type Role int

const (
	// Replica peers use the latency-critical Direct sink path.
	Replica Role = iota
	// Client peers are multiplexed through a ClientPool.
	Client
)

func (r Role) String() string {
	switch r {
	case Replica:
		return "replica"
	case Client:
		return "client"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ClassifyRole reports whether id belongs to a replica or a client, given
// the configured first client id. Values below firstClientID are replicas.
func ClassifyRole(id, firstClientID ID) Role {
	if id < firstClientID {
		return Replica
	}
	return Client
}
