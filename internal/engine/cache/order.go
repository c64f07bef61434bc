package cache

import (
	"container/list"
)

// accessOrder tracks keys by recency for LRU decisions.
// Front is the least recently used key, Back the most recently used one.
// List elements hold the key itself since eviction starts from list nodes.
type accessOrder struct {
	index map[string]*list.Element
	list  *list.List
}

func newAccessOrder() *accessOrder {
	return &accessOrder{
		index: make(map[string]*list.Element),
		list:  list.New(),
	}
}

// touch moves key to the most recent position, adding it if unknown.
func (o *accessOrder) touch(key string) {
	if el, ok := o.index[key]; ok {
		o.list.MoveToBack(el)
		return
	}
	o.index[key] = o.list.PushBack(key)
}

// remove drops key from the order. Removing an unknown key is a no-op.
func (o *accessOrder) remove(key string) {
	el, ok := o.index[key]
	if !ok {
		return
	}
	delete(o.index, key)
	o.list.Remove(el)
}

// oldest returns the least recently used key.
func (o *accessOrder) oldest() (string, bool) {
	el := o.list.Front()
	if el == nil {
		return "", false
	}
	return el.Value.(string), true
}

// contains reports whether key is tracked.
func (o *accessOrder) contains(key string) bool {
	_, ok := o.index[key]
	return ok
}

func (o *accessOrder) len() int {
	return o.list.Len()
}

// keys returns keys from least to most recently used.
func (o *accessOrder) keys() []string {
	out := make([]string, 0, o.list.Len())
	for el := o.list.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}

func (o *accessOrder) reset() {
	o.index = make(map[string]*list.Element)
	o.list.Init()
}
