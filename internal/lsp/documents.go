package lsp

import (
	"sync"

	"splusls/internal/features"
)

type document struct {
	text    string
	version int32
}

// documents holds the text of open documents. Readers get copies.
type documents struct {
	mu   sync.RWMutex
	docs map[string]document
}

func newDocuments() *documents {
	return &documents{docs: make(map[string]document)}
}

func (d *documents) set(uri, text string, version int32) {
	d.mu.Lock()
	d.docs[uri] = document{text: text, version: version}
	d.mu.Unlock()
}

// get returns a snapshot of an open document.
func (d *documents) get(uri string) (features.Document, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[uri]
	if !ok {
		return features.Document{}, false
	}
	return features.Document{URI: uri, Text: doc.text}, true
}

func (d *documents) remove(uri string) {
	d.mu.Lock()
	delete(d.docs, uri)
	d.mu.Unlock()
}
