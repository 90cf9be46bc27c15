package coordinator

import (
	"fmt"
	"sync"
)

// DefaultID is the instance id used by Default and SetDefault.
const DefaultID = "default"

// instances is the process-wide coordinator registry. Widgets across
// the application share one coordinator per instance id instead of
// duplicating network traffic.
var (
	instancesMu sync.Mutex
	instances   = make(map[string]*Coordinator)
)

// Register adds a coordinator under id. Registering a duplicate id is
// a wiring bug and fails fast.
func Register(id string, c *Coordinator) error {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	if _, exists := instances[id]; exists {
		return fmt.Errorf("coordinator %q already registered", id)
	}
	instances[id] = c
	return nil
}

// Get returns the coordinator registered under id.
func Get(id string) (*Coordinator, bool) {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	c, ok := instances[id]
	return c, ok
}

// Default returns the coordinator registered under DefaultID, nil if
// none.
func Default() *Coordinator {
	c, _ := Get(DefaultID)
	return c
}

// SetDefault registers c under DefaultID.
func SetDefault(c *Coordinator) error {
	return Register(DefaultID, c)
}

// Reset clears the registry. Exposed solely for test isolation; the
// caller is responsible for stopping the coordinators first.
func Reset() {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	instances = make(map[string]*Coordinator)
}
