package analytics

import (
	"bytes"
	"encoding/json"
)

// Tally is a string-keyed accumulator that remembers first-insertion order.
// Every per-person rollup uses one, so iteration, JSON output and
// leaderboard tie-breaking all follow the order people first appeared.
type Tally[V any] struct {
	keys []string
	vals map[string]*V
}

func NewTally[V any]() *Tally[V] {
	return &Tally[V]{vals: make(map[string]*V)}
}

// At returns the bucket for key, inserting a zero bucket on first use.
// The returned pointer is a live handle into the tally.
func (t *Tally[V]) At(key string) *V {
	if v, ok := t.vals[key]; ok {
		return v
	}
	v := new(V)
	t.vals[key] = v
	t.keys = append(t.keys, key)
	return v
}

// Get returns the bucket for key without inserting, nil when absent.
func (t *Tally[V]) Get(key string) *V { return t.vals[key] }

func (t *Tally[V]) Len() int { return len(t.keys) }

// Keys returns all keys in first-insertion order. Callers must not modify it.
func (t *Tally[V]) Keys() []string { return t.keys }

// MarshalJSON writes the tally as a JSON object whose members keep
// insertion order rather than Go's sorted map order.
func (t *Tally[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(t.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
