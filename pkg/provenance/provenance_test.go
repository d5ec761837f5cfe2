package provenance

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := NewTracker(true)
	tr.Track("1G1JC12345", "mileage", Provenance{Source: SourceEnhancement})
	tr.Track("1G1JC12345", "price", Provenance{Source: SourceBase, Reason: ReasonProtected})
	tr.Track("A1043", "price", Provenance{Source: SourceBase})

	p, ok := tr.FindByField("1G1JC12345", "mileage")
	require.True(t, ok)
	assert.Equal(t, SourceEnhancement, p.Source)

	_, ok = tr.FindByField("A1043", "mileage")
	assert.False(t, ok)

	assert.Equal(t, []string{"1G1JC12345", "A1043"}, tr.Identities())

	m := tr.FindByIdentity("1G1JC12345")
	m["mileage"] = Provenance{Source: SourceBase}
	p, _ = tr.FindByField("1G1JC12345", "mileage")
	assert.Equal(t, SourceEnhancement, p.Source, "FindByIdentity returns a copy")

	tr.Clear()
	assert.Empty(t, tr.Identities())
}

func TestDisabledTrackerRecordsNothing(t *testing.T) {
	tr := NewTracker(false)
	tr.Track("1G1JC12345", "mileage", Provenance{Source: SourceEnhancement})
	assert.Empty(t, tr.Identities())
}

func TestTrackerConcurrentUse(t *testing.T) {
	tr := NewTracker(true)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Track("1G1JC12345", "mileage", Provenance{Source: SourceEnhancement})
			_ = GenerateReport(tr)
		}()
	}
	wg.Wait()
	assert.Len(t, tr.Identities(), 1)
}

func TestGenerateReport(t *testing.T) {
	tr := NewTracker(true)
	tr.Track("1G1JC12345", "mileage", Provenance{Source: SourceEnhancement})
	tr.Track("1G1JC12345", "description", Provenance{Source: SourceEnhancement})
	tr.Track("1G1JC12345", "price", Provenance{Source: SourceBase, Reason: ReasonProtected})
	tr.Track("1G1JC12345", "make", Provenance{Source: SourceBase})
	tr.Track("A1043", "price", Provenance{Source: SourceBase})

	report := GenerateReport(tr)

	require.Len(t, report.Identities, 2)
	assert.Equal(t, IdentityReport{
		Identity:     "1G1JC12345",
		FromBase:     []string{"make", "price"},
		FromEnhanced: []string{"description", "mileage"},
		Protected:    []string{"price"},
	}, report.Identities[0])
	assert.Equal(t, IdentityReport{Identity: "A1043", FromBase: []string{"price"}}, report.Identities[1])
	assert.Equal(t, 1, report.Enhanced())
}
