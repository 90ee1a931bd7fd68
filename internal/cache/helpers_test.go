package cache

import (
	"fmt"
	"sync"
)

// recordingLogger keeps every diagnostic line for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func listKeys[K comparable, V any](l *RecencyList[K, V]) []K {
	var keys []K
	l.walk(func(entry *Entry[K, V]) bool {
		keys = append(keys, entry.key)
		return true
	})
	return keys
}
