package ecs

// Commands buffers structural changes made by a system while it runs. The
// buffer is applied by World.Flush at the next barrier.
type Commands struct {
	ops []func(*World)
}

func NewCommands() *Commands {
	return &Commands{}
}

// Push queues an arbitrary mutation.
func (c *Commands) Push(op func(*World)) {
	c.ops = append(c.ops, op)
}

// Spawn queues a new entity; init runs at flush time with the allocated id.
func (c *Commands) Spawn(init func(w *World, id EntityID)) {
	c.Push(func(w *World) {
		id := w.Spawn()
		if init != nil {
			init(w, id)
		}
	})
}

func (c *Commands) Despawn(id EntityID) {
	c.Push(func(w *World) { w.Despawn(id) })
}

func (c *Commands) SetNamed(name string, v any) {
	c.Push(func(w *World) { w.SetNamed(name, v) })
}

func (c *Commands) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ops)
}

func (c *Commands) apply(w *World) {
	for _, op := range c.ops {
		op(w)
	}
	c.ops = nil
}

// InsertLater queues attaching v to id.
func InsertLater[T any](c *Commands, id EntityID, v T) {
	c.Push(func(w *World) {
		if w.Alive(id) {
			Insert(w, id, v)
		}
	})
}

// RemoveLater queues detaching T from id.
func RemoveLater[T any](c *Commands, id EntityID) {
	c.Push(func(w *World) { RemoveComponent[T](w, id) })
}

// InsertResourceLater queues replacing the resource of type T.
func InsertResourceLater[T any](c *Commands, v T) {
	c.Push(func(w *World) { InsertResource(w, v) })
}
