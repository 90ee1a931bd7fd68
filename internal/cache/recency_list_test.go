package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestList() *RecencyList[string, int] {
	return NewRecencyList[string, int](&recordingLogger{}, 0)
}

func TestRecencyListEmpty(t *testing.T) {
	list := newTestList()

	assert.Nil(t, list.Front())
	assert.Nil(t, list.Back())
	assert.Equal(t, 0, list.Len())
}

func TestRecencyListPushFrontOrdersMostRecentFirst(t *testing.T) {
	list := newTestList()
	a, b, c := newEntry("a", 1), newEntry("b", 2), newEntry("c", 3)

	list.PushFront(a)
	list.PushFront(b)
	list.PushFront(c)

	assert.Equal(t, []string{"c", "b", "a"}, listKeys(list))
	assert.Same(t, c, list.Front())
	assert.Same(t, a, list.Back())
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, entryLinked, b.state)
}

func TestRecencyListPushFrontIsNoOpForLinkedEntry(t *testing.T) {
	list := newTestList()
	a, b := newEntry("a", 1), newEntry("b", 2)
	list.PushFront(a)
	list.PushFront(b)

	list.PushFront(a)

	assert.Equal(t, []string{"b", "a"}, listKeys(list))
}

func TestRecencyListPushFrontHeldKeepsLock(t *testing.T) {
	list := newTestList()
	entry := newLockedEntry("a", 1)

	list.pushFrontHeld(entry)

	assert.False(t, entry.TryLock(), "caller must still hold the entry")
	entry.Unlock()
	assert.Equal(t, []string{"a"}, listKeys(list))
}

func TestRecencyListRemove(t *testing.T) {
	list := newTestList()
	a, b, c := newEntry("a", 1), newEntry("b", 2), newEntry("c", 3)
	list.PushFront(a)
	list.PushFront(b)
	list.PushFront(c)

	require.True(t, list.Remove(b))
	assert.Equal(t, []string{"c", "a"}, listKeys(list))
	assert.Equal(t, entryUnlinked, b.state)
	assert.Nil(t, b.prev)
	assert.Nil(t, b.next)

	assert.False(t, list.Remove(b), "second remove reports already removed")

	require.True(t, list.Remove(a))
	require.True(t, list.Remove(c))
	assert.Nil(t, list.Back())
}

func TestRecencyListPromote(t *testing.T) {
	list := newTestList()
	a, b, c := newEntry("a", 1), newEntry("b", 2), newEntry("c", 3)
	list.PushFront(a)
	list.PushFront(b)
	list.PushFront(c)

	list.Promote(a)
	assert.Equal(t, []string{"a", "c", "b"}, listKeys(list))

	list.Promote(a)
	assert.Equal(t, []string{"a", "c", "b"}, listKeys(list), "promoting the front entry is a no-op")

	list.Promote(b)
	assert.Equal(t, []string{"b", "a", "c"}, listKeys(list))
}

func TestRecencyListPromoteSkipsDetachedEntry(t *testing.T) {
	list := newTestList()
	a, b := newEntry("a", 1), newEntry("b", 2)
	list.PushFront(a)
	list.PushFront(b)
	require.True(t, list.Remove(a))

	list.Promote(a)

	assert.Equal(t, []string{"b"}, listKeys(list))
}

func TestRecencyListRetiredEntryIsNeverRelinked(t *testing.T) {
	list := newTestList()
	a := newEntry("a", 1)
	list.PushFront(a)

	// a promotion detached the entry before eviction reached it
	require.True(t, list.Remove(a))
	assert.False(t, list.retire(a))
	assert.Equal(t, entryRetired, a.state)

	// the promotion's second half must not bring it back
	list.PushFront(a)
	assert.Equal(t, 0, list.Len())
}

func TestRecencyListRetireLinkedEntry(t *testing.T) {
	list := newTestList()
	a, b := newEntry("a", 1), newEntry("b", 2)
	list.PushFront(a)
	list.PushFront(b)

	assert.True(t, list.retire(a))
	assert.Equal(t, entryRetired, a.state)
	assert.Equal(t, []string{"b"}, listKeys(list))
}

func TestRecencyListRetriesUntilLockIsReleased(t *testing.T) {
	logs := &recordingLogger{}
	list := NewRecencyList[string, int](logs, 1)
	a, b := newEntry("a", 1), newEntry("b", 2)
	list.PushFront(a)

	require.True(t, list.head.TryLock())
	done := make(chan struct{})
	go func() {
		list.PushFront(b)
		close(done)
	}()

	// PushFront keeps retrying while the head sentinel is held
	for {
		logs.mu.Lock()
		retried := len(logs.infos) > 0
		logs.mu.Unlock()
		if retried {
			break
		}
	}
	list.head.Unlock()
	<-done

	assert.Equal(t, []string{"b", "a"}, listKeys(list))
}

func TestRecencyListConcurrentPromotions(t *testing.T) {
	list := newTestList()
	entries := make([]*Entry[string, int], 16)
	for i := range entries {
		entries[i] = newEntry(fmt.Sprintf("k%d", i), i)
		list.PushFront(entries[i])
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				list.Promote(entries[(worker*7+i)%len(entries)])
			}
		}(worker)
	}
	wg.Wait()

	keys := listKeys(list)
	assert.Len(t, keys, len(entries))
	seen := make(map[string]bool)
	for _, key := range keys {
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
	for _, entry := range entries {
		assert.Equal(t, entryLinked, entry.state, entry.key)
	}
}
