//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../mocks/mock_registry.go -package=mocks
package presence

import (
	"chat-relay/contract"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// session is one live connection. The username is attached on join; a
// connection that never joins stays anonymous and produces no chat events.
type session struct {
	username string
	joined   bool
	sink     contract.EventSink
}

// Registry tracks live connections and the presence set derived from them.
// It is rebuilt implicitly from transport state: nothing here is persisted,
// so presence can never drift from reality across restarts.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// Connect registers a freshly accepted connection in the anonymous state.
func (r *Registry) Connect(connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connectionID] = &session{sink: sink}
}

// Join attaches a username to a connection. Repeated joins overwrite the
// previous name. Returns false for a connection the registry never saw,
// which can happen when the transport closed between upgrade and join.
func (r *Registry) Join(connectionID, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connectionID]
	if !ok {
		return false
	}
	s.username = username
	s.joined = true
	return true
}

// Disconnect removes the connection and reports the username it carried.
// joined is false for a connection that disconnected before joining.
func (r *Registry) Disconnect(connectionID string) (username string, joined bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connectionID]
	if !ok {
		return "", false
	}
	delete(r.sessions, connectionID)
	return s.username, s.joined
}

// CurrentUsers returns the de-duplicated presence set, sorted so snapshots
// broadcast to clients are deterministic. Two connections sharing a username
// appear once.
func (r *Registry) CurrentUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.joined {
			users = append(users, s.username)
		}
	}
	users = lo.Uniq(users)
	sort.Strings(users)
	return users
}

// Sink resolves one connection's outbound side for unicast delivery.
func (r *Registry) Sink(connectionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

// Sinks snapshots every live connection's sink for broadcast fan-out.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, s := range r.sessions {
		sinks = append(sinks, s.sink)
	}
	return sinks
}
