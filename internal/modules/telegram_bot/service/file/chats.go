package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"chart_analyst/internal/models"

	"github.com/bytedance/sonic"
)

// Chats хранит настройки чатов в JSON-файле. path == "", только память.
type Chats struct {
	path string

	mu     sync.Mutex
	cache  map[int64]*models.ChatSettings
	loaded bool
}

func NewChats(path string) *Chats {
	return &Chats{
		path:  path,
		cache: make(map[int64]*models.ChatSettings),
	}
}

// Get возвращает копию или nil, nil если чата нет.
func (c *Chats) Get(ctx context.Context, chatID int64) (*models.ChatSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return nil, err
	}
	v, ok := c.cache[chatID]
	if !ok {
		return nil, nil
	}
	return clone(v), nil
}

// Save делает upsert.
func (c *Chats) Save(ctx context.Context, chat *models.ChatSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return err
	}
	c.cache[chat.ChatID] = clone(chat)
	return c.saveLocked()
}

// ErrChatNotFound: Update без дефолта для нового чата.
var ErrChatNotFound = errors.New("chat not found")

// Update меняет настройки чата под мьютексом хранилища. Если чата нет, fn получает копию def
// (def == nil: ErrChatNotFound). Ошибка fn возвращается как есть, и ничего не сохраняется.
func (c *Chats) Update(
	ctx context.Context,
	chatID int64,
	def *models.ChatSettings,
	fn func(chat *models.ChatSettings) error,
) (*models.ChatSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return nil, err
	}
	prev, ok := c.cache[chatID]
	if !ok && def == nil {
		return nil, ErrChatNotFound
	}
	next := clone(prev)
	if !ok {
		next = clone(def)
		next.ChatID = chatID
	}
	if err := fn(next); err != nil {
		return nil, err
	}

	c.cache[chatID] = next
	if err := c.saveLocked(); err != nil {
		if ok {
			c.cache[chatID] = prev
		} else {
			delete(c.cache, chatID)
		}
		return nil, fmt.Errorf("save chats: %w", err)
	}
	return clone(next), nil
}

func (c *Chats) Delete(ctx context.Context, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return err
	}
	delete(c.cache, chatID)
	return c.saveLocked()
}

// List: все чаты по возрастанию ChatID.
func (c *Chats) List(ctx context.Context) ([]*models.ChatSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]*models.ChatSettings, 0, len(c.cache))
	for _, v := range c.cache {
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

type snapshot struct {
	UpdatedAt time.Time              `json:"updated_at"`
	Chats     []*models.ChatSettings `json:"chats"`
}

func (c *Chats) loadLocked() error {
	if c.loaded || c.path == "" {
		c.loaded = true
		return nil
	}

	b, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.loaded = true
			return nil
		}
		return fmt.Errorf("read %s: %w", c.path, err)
	}

	var snap snapshot
	if err := sonic.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode %s: %w", c.path, err)
	}

	c.cache = make(map[int64]*models.ChatSettings, len(snap.Chats))
	for _, ch := range snap.Chats {
		if ch == nil {
			continue
		}
		c.cache[ch.ChatID] = ch
	}

	c.loaded = true
	return nil
}

func (c *Chats) saveLocked() error {
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	chats := make([]*models.ChatSettings, 0, len(c.cache))
	for _, v := range c.cache {
		chats = append(chats, v)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].ChatID < chats[j].ChatID })

	b, err := sonic.ConfigStd.MarshalIndent(&snapshot{UpdatedAt: time.Now(), Chats: chats}, "", "  ")
	if err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path) // атомарно
}

// clone чтобы никто извне не мутировал shared ptr
func clone(in *models.ChatSettings) *models.ChatSettings {
	if in == nil {
		return nil
	}
	out := *in
	out.Watch = append([]models.WatchEntry(nil), in.Watch...)
	return &out
}
