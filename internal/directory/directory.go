// Package directory maps the stable identity of a player (room code plus
// name) to the connection currently carrying it, and back.
package directory

import (
	"strings"
	"sync"
)

// Identity is a seat that outlives any single connection.
type Identity struct {
	Room string
	Name string
}

// NewIdentity normalizes the name so lookups are case-insensitive.
func NewIdentity(room, name string) Identity {
	return Identity{Room: room, Name: strings.ToLower(strings.TrimSpace(name))}
}

// Binding is what a live connection is attached to.
type Binding struct {
	Room string
	Name string
}

func (b Binding) Identity() Identity {
	return NewIdentity(b.Room, b.Name)
}

type Directory struct {
	mu         sync.RWMutex
	byIdentity map[Identity]string
	byConn     map[string]Binding
}

func New() *Directory {
	return &Directory{
		byIdentity: make(map[Identity]string),
		byConn:     make(map[string]Binding),
	}
}

// Bind attaches conn to the seat, replacing whatever connection held it and
// detaching conn from any previous seat. It returns the replaced connection.
func (d *Directory) Bind(room, name, conn string) (previous string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byConn[conn]; ok {
		oldID := old.Identity()
		if d.byIdentity[oldID] == conn {
			delete(d.byIdentity, oldID)
		}
	}

	id := NewIdentity(room, name)
	previous = d.byIdentity[id]
	if previous != "" && previous != conn {
		delete(d.byConn, previous)
	}
	d.byIdentity[id] = conn
	d.byConn[conn] = Binding{Room: room, Name: strings.TrimSpace(name)}
	return previous
}

// Lookup returns the seat conn is attached to.
func (d *Directory) Lookup(conn string) (Binding, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.byConn[conn]
	return b, ok
}

// ConnFor returns the connection currently carrying the seat.
func (d *Directory) ConnFor(room, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	conn, ok := d.byIdentity[NewIdentity(room, name)]
	return conn, ok
}

// Unbind detaches conn. It reports false when conn was not the live
// connection of any seat, e.g. a close arriving after a reconnect.
func (d *Directory) Unbind(conn string) (Binding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.byConn[conn]
	if !ok {
		return Binding{}, false
	}
	delete(d.byConn, conn)
	id := b.Identity()
	if d.byIdentity[id] == conn {
		delete(d.byIdentity, id)
	}
	return b, true
}

// Drop forgets a seat and its connection.
func (d *Directory) Drop(room, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := NewIdentity(room, name)
	if conn, ok := d.byIdentity[id]; ok {
		delete(d.byConn, conn)
		delete(d.byIdentity, id)
	}
}

// DropRoom forgets every seat of a room.
func (d *Directory) DropRoom(room string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, conn := range d.byIdentity {
		if id.Room == room {
			delete(d.byIdentity, id)
			delete(d.byConn, conn)
		}
	}
	for conn, b := range d.byConn {
		if b.Room == room {
			delete(d.byConn, conn)
		}
	}
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byConn)
}
