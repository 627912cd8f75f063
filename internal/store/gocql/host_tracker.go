package gocql

import (
	"sync"

	driver "github.com/apache/cassandra-gocql-driver/v2"
)

// hostTracker wraps a driver.HostSelectionPolicy purely to observe host
// up/down callbacks; it delegates every routing decision to the wrapped
// policy unchanged. It is the production peerLiveness used by agreement.go.
// IsUp reports true only for an address the driver has reported up via
// HostUp and not since reported down or removed; an address it has never
// reported up is treated the same as one marked down.
type hostTracker struct {
	delegate driver.HostSelectionPolicy

	mu sync.RWMutex
	up map[string]struct{}
}

func newHostTracker(delegate driver.HostSelectionPolicy) *hostTracker {
	return &hostTracker{delegate: delegate, up: make(map[string]struct{})}
}

func (t *hostTracker) IsUp(addr string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.up[addr]
	return ok
}

func (t *hostTracker) Init(session *driver.Session)                    { t.delegate.Init(session) }
func (t *hostTracker) IsLocal(host *driver.HostInfo) bool               { return t.delegate.IsLocal(host) }
func (t *hostTracker) KeyspaceChanged(u driver.KeyspaceUpdateEvent)     { t.delegate.KeyspaceChanged(u) }
func (t *hostTracker) SetPartitioner(partitioner string)                { t.delegate.SetPartitioner(partitioner) }
func (t *hostTracker) Pick(qry driver.ExecutableQuery) driver.NextHost  { return t.delegate.Pick(qry) }

func (t *hostTracker) AddHost(host *driver.HostInfo) {
	t.delegate.AddHost(host)
}

func (t *hostTracker) RemoveHost(host *driver.HostInfo) {
	t.mu.Lock()
	delete(t.up, host.ConnectAddress().String())
	t.mu.Unlock()
	t.delegate.RemoveHost(host)
}

func (t *hostTracker) HostUp(host *driver.HostInfo) {
	t.mu.Lock()
	t.up[host.ConnectAddress().String()] = struct{}{}
	t.mu.Unlock()
	t.delegate.HostUp(host)
}

func (t *hostTracker) HostDown(host *driver.HostInfo) {
	t.mu.Lock()
	delete(t.up, host.ConnectAddress().String())
	t.mu.Unlock()
	t.delegate.HostDown(host)
}
