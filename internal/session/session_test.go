package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOverwritesExisting(t *testing.T) {
	m := NewMemoryManager()

	m.Create(7)
	ok := m.Update(7, func(s *Session) {
		s.Name = "Ali"
		s.Stage = StageAwaitingDistrict
	})
	require.True(t, ok)

	m.Create(7)
	s, ok := m.Get(7)
	require.True(t, ok)
	assert.Equal(t, StageAwaitingName, s.Stage)
	assert.Empty(t, s.Name)
	assert.Equal(t, 1, m.Count())
}

func TestDeleteReportsExistence(t *testing.T) {
	m := NewMemoryManager()

	assert.False(t, m.Delete(1))
	m.Create(1)
	assert.True(t, m.Delete(1))
	assert.False(t, m.Delete(1))
	assert.False(t, m.InProgress(1))
}

func TestStageIdleWhenAbsent(t *testing.T) {
	m := NewMemoryManager()

	assert.Equal(t, StageIdle, m.Stage(42))
	assert.False(t, m.InProgress(42))

	m.Create(42)
	assert.Equal(t, StageAwaitingName, m.Stage(42))
	assert.True(t, m.InProgress(42))
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewMemoryManager()
	m.Create(5)

	s, ok := m.Get(5)
	require.True(t, ok)
	s.Name = "mutated"

	again, ok := m.Get(5)
	require.True(t, ok)
	assert.Empty(t, again.Name)
}

func TestUpdateMissingSession(t *testing.T) {
	m := NewMemoryManager()
	called := false
	ok := m.Update(9, func(*Session) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

func TestConcurrentUsers(t *testing.T) {
	m := NewMemoryManager()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			m.Create(id)
			m.Update(id, func(s *Session) { s.Stage = StageAwaitingPhone })
			_ = m.InProgress(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, m.Count())
	for i := int64(0); i < 50; i++ {
		assert.Equal(t, StageAwaitingPhone, m.Stage(i))
	}
}
