// Package cluster provides the two coordination primitives the replicas
// share: a small replicated key/value map, and per-trigger leader election
// backed by etcd leases.
package cluster

import (
	"context"
	"fmt"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// SharedMap is the replicated state visible to every replica: the negotiated
// requestor identity and the per-kind last-received heartbeats.
type SharedMap interface {
	// PutIfAbsent stores value under key only when the key holds no value,
	// and returns the value that holds after the call. Concurrent callers
	// all observe the same winner.
	PutIfAbsent(ctx context.Context, key, value string) (string, error)
	// Get returns the current value and whether one exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set unconditionally replaces the value under key.
	Set(ctx context.Context, key, value string) error
}

// EtcdMap is a SharedMap stored under a key prefix in etcd.
type EtcdMap struct {
	client *clientv3.Client
	prefix string
}

func NewEtcdMap(client *clientv3.Client, prefix string) *EtcdMap {
	return &EtcdMap{client: client, prefix: prefix}
}

func (m *EtcdMap) PutIfAbsent(ctx context.Context, key, value string) (string, error) {
	var k = m.prefix + "/" + key
	resp, err := m.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(k), "=", 0)).
		Then(clientv3.OpPut(k, value)).
		Else(clientv3.OpGet(k)).
		Commit()
	if err != nil {
		return "", fmt.Errorf("put-if-absent of %q: %w", key, err)
	}
	if resp.Succeeded {
		return value, nil
	}
	var kvs = resp.Responses[0].GetResponseRange().Kvs
	if len(kvs) == 0 {
		return "", fmt.Errorf("put-if-absent of %q: lost value mid-transaction", key)
	}
	return string(kvs[0].Value), nil
}

func (m *EtcdMap) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := m.client.Get(ctx, m.prefix+"/"+key)
	if err != nil {
		return "", false, fmt.Errorf("getting %q: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

func (m *EtcdMap) Set(ctx context.Context, key, value string) error {
	if _, err := m.client.Put(ctx, m.prefix+"/"+key, value); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// MemoryMap is a process-local SharedMap used by tests.
type MemoryMap struct {
	mu sync.Mutex
	kv map[string]string
}

func NewMemoryMap() *MemoryMap {
	return &MemoryMap{kv: make(map[string]string)}
}

func (m *MemoryMap) PutIfAbsent(_ context.Context, key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.kv[key]; ok {
		return current, nil
	}
	m.kv[key] = value
	return value, nil
}

func (m *MemoryMap) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var value, ok = m.kv[key]
	return value, ok, nil
}

func (m *MemoryMap) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}
