// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

// KeySet declares which logical resources a message claims: a single
// key or a set of keys. Two messages conflict iff their key sets share
// at least one key; the channel never delivers conflicting messages
// concurrently.
//
// Construct with [SingleKey] or [MultiKey]. A KeySet is immutable after
// construction.
type KeySet[K comparable] struct {
	single  K
	multi   []K
	isMulti bool
}

// SingleKey returns a KeySet claiming one key.
func SingleKey[K comparable](key K) KeySet[K] {
	return KeySet[K]{single: key}
}

// MultiKey returns a KeySet claiming every given key. Duplicates are
// folded, preserving first-seen order. An empty MultiKey claims
// nothing: the message is always eligible and releases no keys.
func MultiKey[K comparable](keys ...K) KeySet[K] {
	folded := make([]K, 0, len(keys))
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		folded = append(folded, k)
	}
	return KeySet[K]{multi: folded, isMulti: true}
}

// Len returns the number of distinct keys in the set.
func (s KeySet[K]) Len() int {
	if s.isMulti {
		return len(s.multi)
	}
	return 1
}

// Keys returns the distinct keys as a fresh slice.
func (s KeySet[K]) Keys() []K {
	if s.isMulti {
		out := make([]K, len(s.multi))
		copy(out, s.multi)
		return out
	}
	return []K{s.single}
}

// each calls fn for every distinct key until fn returns false.
func (s KeySet[K]) each(fn func(K) bool) {
	if !s.isMulti {
		fn(s.single)
		return
	}
	for _, k := range s.multi {
		if !fn(k) {
			return
		}
	}
}
