package identity

import (
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLoader is a RecordLoader backed by a fixed slice or error.
type stubLoader struct {
	records []Record
	err     error
	calls   int
}

func (s *stubLoader) Load() ([]Record, error) {
	s.calls++
	return s.records, s.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testRecords() []Record {
	return []Record{
		{CanonicalID: 12345, DisplayName: "Ken Griffey", Active: true},
		{CanonicalID: 777, DisplayName: "John Smith", Active: true},
		{CanonicalID: 545361, DisplayName: "Mike Trout", Active: true},
	}
}

func TestRegistryLoadsOnce(t *testing.T) {
	loader := &stubLoader{records: testRecords()}
	registry := NewRegistry(loader, testLogger())

	assert.Equal(t, 3, registry.Len())
	registry.All()
	registry.LookupExact("michael trout")

	assert.Equal(t, 1, loader.calls)
}

func TestRegistryLoadFailureStartsEmpty(t *testing.T) {
	loader := &stubLoader{err: errors.New("database unreachable")}
	registry := NewRegistry(loader, testLogger())

	assert.Equal(t, 0, registry.Len())

	// The registry still works: misses become provisional records.
	rec := registry.AddProvisional("", "Zzyzx Player", "OF")
	assert.True(t, rec.Provisional)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryNilLoader(t *testing.T) {
	registry := NewRegistry(nil, testLogger())
	assert.Equal(t, 0, registry.Len())
}

func TestLookupExact(t *testing.T) {
	registry := NewRegistry(&stubLoader{records: testRecords()}, testLogger())

	rec, ok := registry.LookupExact("michael trout")
	require.True(t, ok)
	assert.Equal(t, int64(545361), rec.CanonicalID)

	_, ok = registry.LookupExact("nobody here")
	assert.False(t, ok)
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	registry := NewRegistry(&stubLoader{records: testRecords()}, testLogger())

	all := registry.All()
	require.Len(t, all, 3)
	assert.Equal(t, int64(12345), all[0].CanonicalID)
	assert.Equal(t, int64(777), all[1].CanonicalID)
	assert.Equal(t, int64(545361), all[2].CanonicalID)
}

func TestAddProvisionalIdempotent(t *testing.T) {
	registry := NewRegistry(nil, testLogger())

	first := registry.AddProvisional("9001", "Zzyzx Player", "OF")
	second := registry.AddProvisional("9001", "Zzyzx Player", "OF")

	assert.Equal(t, first.CanonicalID, second.CanonicalID)
	assert.Equal(t, 1, registry.Len())

	// Raw-name variants that normalize identically also converge.
	third := registry.AddProvisional("9001", "Player, Zzyzx", "OF")
	assert.Equal(t, first.CanonicalID, third.CanonicalID)
	assert.Equal(t, 1, registry.Len())
}

func TestAddProvisionalSyntheticID(t *testing.T) {
	registry := NewRegistry(nil, testLogger())

	// Numeric source ID is negated.
	rec := registry.AddProvisional("9001", "Zzyzx Player", "OF")
	assert.Equal(t, int64(-9001), rec.CanonicalID)
	assert.True(t, rec.Provisional)

	// Non-numeric source ID falls back to a negative hash.
	rec2 := registry.AddProvisional("", "Another Unknown", "1B")
	assert.Negative(t, rec2.CanonicalID)
	assert.NotEqual(t, rec.CanonicalID, rec2.CanonicalID)
}

func TestAddProvisionalConcurrent(t *testing.T) {
	registry := NewRegistry(nil, testLogger())

	const goroutines = 32
	ids := make([]int64, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = registry.AddProvisional("4242", "Concurrent Player", "2B").CanonicalID
		}(i)
	}
	wg.Wait()

	// Every goroutine must observe the same record.
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, registry.Len())
}

func TestProvisionals(t *testing.T) {
	registry := NewRegistry(&stubLoader{records: testRecords()}, testLogger())

	assert.Empty(t, registry.Provisionals())

	registry.AddProvisional("1", "Unknown One", "OF")
	registry.AddProvisional("2", "Unknown Two", "SS")

	provisionals := registry.Provisionals()
	require.Len(t, provisionals, 2)
	for _, rec := range provisionals {
		assert.True(t, rec.Provisional)
		assert.Negative(t, rec.CanonicalID)
	}
}
