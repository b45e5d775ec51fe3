package monitoring

import (
	"context"
	"sync"
	"time"

	"legal-rag-service/internal/storage"
)

// historyLimit caps retained vector store status checks
const historyLimit = 100

// VectorDBStatus is one status check result
type VectorDBStatus struct {
	Timestamp     string `json:"timestamp"`
	Status        string `json:"status"` // healthy | unhealthy
	DocumentCount int64  `json:"document_count,omitempty"`
	Collection    string `json:"collection_name,omitempty"`
	Error         string `json:"error,omitempty"`
}

// VectorDBSummary aggregates the last checks
type VectorDBSummary struct {
	CurrentStatus string  `json:"current_status"` // healthy | unhealthy | unknown
	HealthRate    float64 `json:"health_rate"`
	LastCheck     string  `json:"last_check,omitempty"`
}

// VectorDBMonitor polls the vector store and keeps a rolling status history
// (last 100 checks); the summary reads the last 10.
type VectorDBMonitor struct {
	store      storage.VectorStore
	collection string

	mu        sync.Mutex
	history   []VectorDBStatus
	lastCheck time.Time
}

// NewVectorDBMonitor wires the monitor onto the store
func NewVectorDBMonitor(store storage.VectorStore, collection string) *VectorDBMonitor {
	return &VectorDBMonitor{store: store, collection: collection}
}

// CheckStatus probes the store and records the outcome
func (vm *VectorDBMonitor) CheckStatus(ctx context.Context) VectorDBStatus {
	now := time.Now()
	status := VectorDBStatus{Timestamp: now.UTC().Format(time.RFC3339)}

	count, err := vm.store.Count(ctx)
	if err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
		status.DocumentCount = count
		status.Collection = vm.collection
	}

	vm.mu.Lock()
	vm.history = append(vm.history, status)
	if len(vm.history) > historyLimit {
		vm.history = vm.history[len(vm.history)-historyLimit:]
	}
	vm.lastCheck = now
	vm.mu.Unlock()
	return status
}

// Summary reports the current status and the health rate over the last 10
// checks. No checks yet yields status "unknown".
func (vm *VectorDBMonitor) Summary() VectorDBSummary {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if len(vm.history) == 0 {
		return VectorDBSummary{CurrentStatus: "unknown"}
	}

	recent := vm.history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	healthy := 0
	for _, status := range recent {
		if status.Status == "healthy" {
			healthy++
		}
	}
	return VectorDBSummary{
		CurrentStatus: recent[len(recent)-1].Status,
		HealthRate:    float64(healthy) / float64(len(recent)),
		LastCheck:     vm.lastCheck.UTC().Format(time.RFC3339),
	}
}
