package env

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID identifying the machine, protected for the
// application so the raw machine id is never published.
func MachineID() string {
	id, err := machineid.ProtectedID("halflink")
	if err != nil {
		return "default"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
