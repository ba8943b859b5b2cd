package protocol

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ValentinKolb/dbnetget/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("protocol")

// Protocol is a qdb transaction bound to one key
type Protocol interface {
	transport.Transaction
	// Name returns the name the protocol is registered under
	Name() string
	// Key returns the key the transaction operates on
	Key() Key
}

// Constructor creates a protocol transaction for key
type Constructor func(key Key) Protocol

// Registry maps protocol names to constructors. Registration is explicit,
// see RegisterDefaults.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor under name, names can only be registered once
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" || ctor == nil {
		return fmt.Errorf("invalid protocol registration %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ctors[name]; ok {
		return fmt.Errorf("protocol %q already registered", name)
	}
	r.ctors[name] = ctor
	Logger.Debugf("Registered protocol %s", name)
	return nil
}

// Create creates a transaction of the named protocol for key
func (r *Registry) Create(name string, key Key) (Protocol, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown protocol %q", name)
	}
	return ctor(key), nil
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults registers the built-in qdb protocols
func RegisterDefaults(r *Registry) error {
	if err := r.Register("get", func(key Key) Protocol { return NewGet(key) }); err != nil {
		return err
	}
	return r.Register("test", func(key Key) Protocol { return NewTest(key) })
}

// DefaultRegistry returns a new registry with the built-in protocols
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterDefaults(r); err != nil {
		panic(err) // only fails on duplicate built-in names
	}
	return r
}
