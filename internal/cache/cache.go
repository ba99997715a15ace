package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Analysis is one cached vision model answer.
type Analysis struct {
	Digest    string    `json:"digest"`
	Model     string    `json:"model"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache keeps screenshot analyses in memory and persists them as a JSON file.
type Cache struct {
	filePath string
	mu       sync.Mutex
	analyses map[string]Analysis
}

func NewCache(filePath string) *Cache {
	return &Cache{
		filePath: filePath,
		analyses: make(map[string]Analysis),
	}
}

func key(digest, model string) string {
	return model + "@" + digest
}

func (c *Cache) Load() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var analyses []Analysis
	if err := json.Unmarshal(data, &analyses); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range analyses {
		c.analyses[key(a.Digest, a.Model)] = a
	}
	return nil
}

func (c *Cache) Save() error {
	c.mu.Lock()
	analyses := make([]Analysis, 0, len(c.analyses))
	for _, a := range c.analyses {
		analyses = append(analyses, a)
	}
	c.mu.Unlock()

	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.Before(analyses[j].CreatedAt)
	})

	data, err := json.MarshalIndent(analyses, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(c.filePath, data, 0644)
}

func (c *Cache) Get(digest, model string) (Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, exists := c.analyses[key(digest, model)]
	return a, exists
}

func (c *Cache) Set(a Analysis) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyses[key(a.Digest, a.Model)] = a
}

// GetAnalysis and PutAnalysis let the cache back the vision client.
func (c *Cache) GetAnalysis(digest, model string) (string, bool, error) {
	a, ok := c.Get(digest, model)
	return a.Text, ok, nil
}

// PutAnalysis stores the answer and writes the file immediately.
func (c *Cache) PutAnalysis(digest, model, text string) error {
	c.Set(Analysis{Digest: digest, Model: model, Text: text})
	return c.Save()
}
