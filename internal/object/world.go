package object

import (
	"github.com/tomz197/arcade/internal/protocol"
)

// World holds the entities of one arena.
type World struct {
	Objects []Object
	toSpawn []Object // Objects to add after the current update cycle
	nextID  int
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{Objects: []Object{}, nextID: 1}
}

// NextID hands out entity ids, unique within the world.
func (w *World) NextID() int {
	id := w.nextID
	w.nextID++
	return id
}

// Add adds an object immediately.
func (w *World) Add(obj Object) {
	w.Objects = append(w.Objects, obj)
}

// Spawn queues an object to be added after the current update cycle.
// Implements the Spawner interface.
func (w *World) Spawn(obj Object) {
	w.toSpawn = append(w.toSpawn, obj)
}

// FlushSpawned adds all queued objects and clears the queue.
func (w *World) FlushSpawned() {
	w.Objects = append(w.Objects, w.toSpawn...)
	clear(w.toSpawn)
	w.toSpawn = w.toSpawn[:0]
}

// Update advances every object, drops the ones that asked to be removed and
// flushes spawned objects. The first error is returned after all objects ran.
func (w *World) Update(ctx UpdateContext) error {
	if ctx.Spawner == nil {
		ctx.Spawner = w
	}
	var firstErr error
	kept := w.Objects[:0]
	for _, obj := range w.Objects {
		remove, err := obj.Update(ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if remove {
			cancelTimers(obj)
			continue
		}
		kept = append(kept, obj)
	}
	clear(w.Objects[len(kept):])
	w.Objects = kept
	w.FlushSpawned()
	return firstErr
}

// CancelAll cancels every pending deferred action of every object.
func (w *World) CancelAll() {
	for _, obj := range w.Objects {
		cancelTimers(obj)
	}
	for _, obj := range w.toSpawn {
		cancelTimers(obj)
	}
}

func cancelTimers(obj Object) {
	if t, ok := obj.(Timed); ok {
		for _, d := range t.Timers() {
			d.Cancel()
		}
	}
}

// Find returns the object with the given id, or nil.
func (w *World) Find(id int) Object {
	for _, obj := range w.Objects {
		if obj.ID() == id {
			return obj
		}
	}
	return nil
}

// States returns the wire form of every object.
func (w *World) States() []protocol.EntityState {
	states := make([]protocol.EntityState, 0, len(w.Objects))
	for _, obj := range w.Objects {
		states = append(states, obj.State())
	}
	return states
}

// Apply overwrites the world with snapshot states. Known objects take the new
// state, unknown ids become ghosts and objects missing from the snapshot are
// dropped.
func (w *World) Apply(states []protocol.EntityState) {
	byID := make(map[int]Object, len(w.Objects))
	for _, obj := range w.Objects {
		byID[obj.ID()] = obj
	}
	next := make([]Object, 0, len(states))
	for _, s := range states {
		obj, ok := byID[s.ID]
		if !ok || obj.Kind() != s.Kind {
			obj = NewGhost(s)
		} else {
			obj.SetState(s)
		}
		next = append(next, obj)
		if s.ID >= w.nextID {
			w.nextID = s.ID + 1
		}
	}
	w.Objects = next
}
