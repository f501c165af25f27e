package service

import (
	"sync"
	"time"
)

const awaitTTL = 5 * time.Minute

// pending: чего ждём от чата следующим текстовым сообщением.
type pending struct {
	key     string // "analyze", "watch", "set:<param>"
	expires time.Time
}

type awaitStore struct {
	mu sync.Mutex
	m  map[int64]pending // chatID -> key
}

func newAwaitStore() *awaitStore {
	return &awaitStore{m: make(map[int64]pending)}
}

func (t *Telegram) setAwait(chatID int64, key string) {
	t.await.mu.Lock()
	defer t.await.mu.Unlock()
	t.await.m[chatID] = pending{key: key, expires: t.now().Add(awaitTTL)}
}

// popAwait забирает ключ; просроченный считается отсутствующим.
func (t *Telegram) popAwait(chatID int64) (string, bool) {
	t.await.mu.Lock()
	defer t.await.mu.Unlock()
	p, ok := t.await.m[chatID]
	if !ok {
		return "", false
	}
	delete(t.await.m, chatID)
	if t.now().After(p.expires) {
		return "", false
	}
	return p.key, true
}

func (t *Telegram) clearAwait(chatID int64) {
	t.await.mu.Lock()
	defer t.await.mu.Unlock()
	delete(t.await.m, chatID)
}
