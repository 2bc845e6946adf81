package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// TransactionLog is a bounded, append-only record of AI interactions.
// When full, the oldest entry is evicted. Append is the single insertion point.
type TransactionLog struct {
	mu       sync.Mutex
	entries  []domain.Transaction
	start    int
	size     int
	capacity int
	now      func() time.Time
}

// NewTransactionLog creates a log holding at most capacity entries.
func NewTransactionLog(capacity int) *TransactionLog {
	if capacity <= 0 {
		capacity = domain.DefaultTransactionCapacity
	}
	return &TransactionLog{
		entries:  make([]domain.Transaction, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Append stamps the transaction with an id and timestamp and stores it.
func (l *TransactionLog) Append(tx domain.Transaction) domain.Transaction {
	tx.ID = uuid.New().String()

	l.mu.Lock()
	defer l.mu.Unlock()

	tx.Timestamp = l.now()
	if l.size < l.capacity {
		l.entries[(l.start+l.size)%l.capacity] = tx
		l.size++
	} else {
		l.entries[l.start] = tx
		l.start = (l.start + 1) % l.capacity
	}
	return tx
}

// List returns all retained entries, oldest first.
func (l *TransactionLog) List() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Transaction, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.start+i)%l.capacity]
	}
	return out
}

// Clear removes every entry.
func (l *TransactionLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]domain.Transaction, l.capacity)
	l.start = 0
	l.size = 0
}

// Len returns the number of retained entries.
func (l *TransactionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Capacity returns the maximum number of retained entries.
func (l *TransactionLog) Capacity() int {
	return l.capacity
}
