package session

import (
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filestash/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Transitions(t *testing.T) {
	var s State
	assert.True(t, s.IsZero())
	assert.NoError(t, s.Validate())

	s = s.To(ChoosingCategory).WithPending(PendingUpload{MessageID: 5, ChatID: 9})
	assert.NoError(t, s.Validate())
	require.NotNil(t, s.Pending)

	s = s.ChooseFile("Trip")
	assert.Equal(t, ChoosingFile, s.Node)
	assert.Equal(t, "Trip", s.Category)
	assert.Nil(t, s.Pending)
	assert.NoError(t, s.Validate())

	s.FilesUploaded, s.ConfirmationRef = 3, 77
	r := s.RestartUploads()
	assert.Equal(t, "Trip", r.Category)
	assert.Zero(t, r.FilesUploaded)
	assert.Zero(t, r.ConfirmationRef)

	m := s.To(MainMenu)
	assert.Empty(t, m.Category)
	assert.Zero(t, m.FilesUploaded)
	assert.True(t, m.IsZero())
}

func TestState_ToChoosingFilePanics(t *testing.T) {
	assert.Panics(t, func() { State{}.To(ChoosingFile) })
}

func TestState_ValidateCatchesBrokenInvariant(t *testing.T) {
	err := State{Node: MainMenu, Category: "x"}.Validate()
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	err = State{Node: ChoosingFile}.Validate()
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestNode_String(t *testing.T) {
	assert.Equal(t, "choosing_file", ChoosingFile.String())
	assert.Equal(t, "node(42)", Node(42).String())
}

func TestRegistry_StoreLoadEvict(t *testing.T) {
	r := NewRegistry()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	assert.True(t, r.Load("u1").IsZero())

	r.Store("u1", State{}.ChooseFile("Trip"))
	r.Store("u2", State{}.To(WaitingForCategoryName))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "Trip", r.Load("u1").Category)

	// zero state evicts
	r.Store("u2", State{})
	assert.Equal(t, 1, r.Len())

	now = now.Add(10 * time.Minute)
	r.Store("u3", State{}.To(ChoosingCategory))

	assert.Equal(t, 1, r.EvictIdle(5*time.Minute))
	assert.True(t, r.Load("u1").IsZero())
	assert.Equal(t, ChoosingCategory, r.Load("u3").Node)

	r.Delete("u3")
	assert.Zero(t, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				r.Store(id, State{}.ChooseFile("c"))
				_ = r.Load(id)
				r.EvictIdle(time.Hour)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, r.Len())
}
