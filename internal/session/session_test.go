package session

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
)

func plant(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load("plant.csv", strings.NewReader("BOD,COD\n10,40\n11,42\n"), dataset.DefaultOptions())
	require.NoError(t, err)
	return ds
}

func TestLifecycle(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Start(plant(t))
	require.NotEmpty(t, s.ID)

	_, ok := s.AnomalyNarrative()
	assert.False(t, ok, "new session starts empty")

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, st.Len())

	st.End(s.ID)
	_, err = st.Get(s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 0, st.Len())
}

func TestAnomalySlotOnlyFromAnomalyAction(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Start(plant(t))

	err := st.SetAnomalyNarrative(s.ID, narrative.Response{Kind: narrative.KindSummary, Text: "x"})
	assert.ErrorIs(t, err, ErrWrongKind)
	_, ok := s.AnomalyNarrative()
	assert.False(t, ok)

	require.NoError(t, st.SetAnomalyNarrative(s.ID, narrative.Response{Kind: narrative.KindAnomaly, Text: "rij 5 is hoog"}))
	s.SetLast(narrative.Response{Kind: narrative.KindQuestion, Text: "antwoord"}, "waarom?")

	resp, ok := s.AnomalyNarrative()
	require.True(t, ok)
	assert.Equal(t, "rij 5 is hoog", resp.Text, "slot survives unrelated actions")

	last, q, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "antwoord", last.Text)
	assert.Equal(t, "waarom?", q)

	assert.ErrorIs(t, st.SetAnomalyNarrative("missing", narrative.Response{Kind: narrative.KindAnomaly}), ErrNotFound)
}

func TestFlashesAreConsumedOnce(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Start(plant(t))
	s.Flash("Niet genoeg numerieke kolommen")
	s.Flash("Kolom is niet numeriek")
	assert.Equal(t, []string{"Niet genoeg numerieke kolommen", "Kolom is niet numeriek"}, s.TakeFlashes())
	assert.Empty(t, s.TakeFlashes())
}

func TestIdleExpiry(t *testing.T) {
	st := NewStore(50 * time.Millisecond)
	s := st.Start(plant(t))
	time.Sleep(120 * time.Millisecond)
	_, err := st.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDoSerialisesActions(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Start(plant(t))

	var (
		wg      sync.WaitGroup
		running int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do(func() {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestStartLogsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	s := NewStore(time.Minute).Start(plant(t))

	out := buf.String()
	assert.Contains(t, out, `"component":"session"`)
	assert.Contains(t, out, `"session":"`+s.ID+`"`)
	assert.Contains(t, out, `"dataset":"plant.csv"`)
}
