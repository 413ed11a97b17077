package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Document is the persisted counter state.
type Document struct {
	TotalLinks  int64   `json:"total_links"`
	UserStats   Counter `json:"user_stats"`
	DomainStats Counter `json:"domain_stats"`
}

// Entry is one key of a Counter with its count.
type Entry struct {
	Key   string
	Count int64
}

// Counter maps string keys to counts and remembers the order in which
// keys were first seen. The order survives a JSON round trip, which is
// what lets tied domains keep their relative position across restarts.
// The zero value is an empty counter ready to use.
type Counter struct {
	keys   []string
	counts map[string]int64
}

// NewCounter builds a counter from entries in the given order.
// Repeated keys are summed into the first occurrence.
func NewCounter(entries ...Entry) Counter {
	var c Counter
	for _, e := range entries {
		c.add(e.Key, e.Count)
	}
	return c
}

func (c *Counter) add(key string, n int64) int64 {
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key] += n
	return c.counts[key]
}

// Inc adds one to key, creating it at 1 when absent, and returns the new count.
func (c *Counter) Inc(key string) int64 {
	return c.add(key, 1)
}

// Get returns the count for key, or 0.
func (c Counter) Get(key string) int64 {
	return c.counts[key]
}

func (c Counter) Len() int {
	return len(c.keys)
}

// Entries returns all keys in insertion order.
func (c Counter) Entries() []Entry {
	return lo.Map(c.keys, func(k string, _ int) Entry {
		return Entry{Key: k, Count: c.counts[k]}
	})
}

// Sum returns the total of all counts.
func (c Counter) Sum() int64 {
	return lo.Sum(lo.Values(c.counts))
}

// Clone returns a deep copy.
func (c Counter) Clone() Counter {
	return NewCounter(c.Entries()...)
}

func (c Counter) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", c.counts[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Counter) UnmarshalJSON(data []byte) error {
	*c = Counter{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("counter must be a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected counter key %v", tok)
		}

		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("counter %q: %w", key, err)
		}
		count, err := parseCount(n)
		if err != nil {
			return fmt.Errorf("counter %q: %w", key, err)
		}
		c.add(key, count)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// parseCount accepts integral numbers written either as 5 or 5.0.
func parseCount(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("count %s is not an integer", n)
	}
	return int64(f), nil
}

// UnmarshalJSON reads total_links with the same rules as counter values,
// so 5.0 is accepted and null means zero.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		TotalLinks  *json.Number `json:"total_links"`
		UserStats   Counter      `json:"user_stats"`
		DomainStats Counter      `json:"domain_stats"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var total int64
	if raw.TotalLinks != nil {
		n, err := parseCount(*raw.TotalLinks)
		if err != nil {
			return fmt.Errorf("total_links: %w", err)
		}
		total = n
	}

	*d = Document{
		TotalLinks:  total,
		UserStats:   raw.UserStats,
		DomainStats: raw.DomainStats,
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return Document{
		TotalLinks:  d.TotalLinks,
		UserStats:   d.UserStats.Clone(),
		DomainStats: d.DomainStats.Clone(),
	}
}

// Consistent reports whether total_links equals the sum of user_stats.
func (d Document) Consistent() bool {
	return d.TotalLinks == d.UserStats.Sum()
}

func decodeDocument(data []byte) (Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func encodeDocument(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "    ")
}
