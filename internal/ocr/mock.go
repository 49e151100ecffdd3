package ocr

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// MockStores are the store names the mock picks from.
var MockStores = []string{"コンビニ", "スーパー", "カフェ", "レストラン", "書店"}

const (
	mockMinAmount  = 100
	mockAmountSpan = 10000
)

// Mock stands in for real OCR: today's date, a random amount in
// [100, 10099] and a random store name.
type Mock struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewMock returns a Mock. Nil arguments select a time-seeded source and time.Now.
func NewMock(rnd *rand.Rand, now func() time.Time) *Mock {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Mock{rnd: rnd, now: now}
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Extract ignores the image and returns random metadata.
func (m *Mock) Extract(ctx context.Context, _ []byte, _ string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}

	m.mu.Lock()
	amount := m.rnd.Intn(mockAmountSpan) + mockMinAmount
	store := MockStores[m.rnd.Intn(len(MockStores))]
	m.mu.Unlock()

	return Candidate{
		Date:   m.now().Format("2006-01-02"),
		Amount: strconv.Itoa(amount),
		Store:  store,
	}, nil
}
