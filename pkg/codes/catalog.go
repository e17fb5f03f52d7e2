package codes

import (
	"fmt"
	"maps"
	"os"
	"sort"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Catalog maps machine readable codes to human readable messages.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]string
}

// NewCatalog creates a catalog seeded with the builtin framework codes.
func NewCatalog() *Catalog {
	c := &Catalog{messages: make(map[string]string)}
	c.Register(Builtin())
	return c
}

// Builtin returns the codes the framework itself raises.
func Builtin() map[string]string {
	return map[string]string{
		"spawnpoint.already_setup":                "Spawnpoint is already set up.",
		"spawnpoint.config.sample_not_collection": "The requested config collection does not exist or is empty.",
		"spawnpoint.plugin_failed":                "A plugin failed to initialize.",
		"app.config.locked_timeout":               "Timed out waiting for a free item in a locked collection.",
		"rotation.empty_collection":               "Rotation collections must contain at least one item.",
	}
}

// Register merges codes into the catalog, replacing existing messages.
func (c *Catalog) Register(codes map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.messages, codes)
}

// Message returns the message registered for code.
func (c *Catalog) Message(code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.messages[code]
	return msg, ok
}

// Codes returns every registered code in sorted order.
func (c *Catalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for code := range c.messages {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered codes.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// LoadFile reads a TOML codes file and registers its entries. Nested tables
// are flattened with dots, so
//
//	[http]
//	not_found = "The requested page was not found."
//
// registers "http.not_found". It returns the number of codes loaded.
func (c *Catalog) LoadFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(b, &raw); err != nil {
		return 0, fmt.Errorf("parse codes %s: %w", path, err)
	}
	flat := make(map[string]string)
	if err := flatten("", raw, flat); err != nil {
		return 0, fmt.Errorf("parse codes %s: %w", path, err)
	}
	c.Register(flat)
	return len(flat), nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]string) error {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]interface{}:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("code %q: message must be a string, got %T", key, v)
		}
	}
	return nil
}
