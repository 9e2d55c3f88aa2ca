package ecs

import (
	"strings"

	"github.com/kelindar/bitmap"
)

// Access is the set of resources and components a system declares it reads
// or writes. A write implies the right to read.
type Access struct {
	ResourcesRead     bitmap.Bitmap
	ResourcesWritten  bitmap.Bitmap
	ComponentsRead    bitmap.Bitmap
	ComponentsWritten bitmap.Bitmap
}

func (a *Access) ReadResource(k ResourceKey)    { a.ResourcesRead.Set(uint32(k)) }
func (a *Access) WriteResource(k ResourceKey)   { a.ResourcesWritten.Set(uint32(k)) }
func (a *Access) ReadComponent(k ComponentKey)  { a.ComponentsRead.Set(uint32(k)) }
func (a *Access) WriteComponent(k ComponentKey) { a.ComponentsWritten.Set(uint32(k)) }

func (a *Access) CanReadResource(k ResourceKey) bool {
	return a.ResourcesRead.Contains(uint32(k)) || a.ResourcesWritten.Contains(uint32(k))
}

func (a *Access) CanWriteResource(k ResourceKey) bool {
	return a.ResourcesWritten.Contains(uint32(k))
}

func (a *Access) CanReadComponent(k ComponentKey) bool {
	return a.ComponentsRead.Contains(uint32(k)) || a.ComponentsWritten.Contains(uint32(k))
}

func (a *Access) CanWriteComponent(k ComponentKey) bool {
	return a.ComponentsWritten.Contains(uint32(k))
}

// Conflicts reports whether a and o may not run at the same time: one side
// writes a key the other reads or writes.
func (a *Access) Conflicts(o *Access) bool {
	return intersects(a.ResourcesWritten, o.ResourcesWritten) ||
		intersects(a.ResourcesWritten, o.ResourcesRead) ||
		intersects(a.ResourcesRead, o.ResourcesWritten) ||
		intersects(a.ComponentsWritten, o.ComponentsWritten) ||
		intersects(a.ComponentsWritten, o.ComponentsRead) ||
		intersects(a.ComponentsRead, o.ComponentsWritten)
}

// Merge adds every key of o to a.
func (a *Access) Merge(o *Access) {
	union(&a.ResourcesRead, o.ResourcesRead)
	union(&a.ResourcesWritten, o.ResourcesWritten)
	union(&a.ComponentsRead, o.ComponentsRead)
	union(&a.ComponentsWritten, o.ComponentsWritten)
}

func (a *Access) IsEmpty() bool {
	return a.ResourcesRead.Count() == 0 && a.ResourcesWritten.Count() == 0 &&
		a.ComponentsRead.Count() == 0 && a.ComponentsWritten.Count() == 0
}

// Describe lists the declared keys using w's names, for logs.
func (a *Access) Describe(w *World) string {
	var parts []string
	add := func(prefix string, b bitmap.Bitmap, name func(uint32) string) {
		b.Range(func(x uint32) {
			parts = append(parts, prefix+name(x))
		})
	}
	res := func(x uint32) string { return w.registry.ResourceName(ResourceKey(x)) }
	comp := func(x uint32) string { return w.registry.ComponentName(ComponentKey(x)) }
	add("r:", a.ResourcesRead, res)
	add("w:", a.ResourcesWritten, res)
	add("r:", a.ComponentsRead, comp)
	add("w:", a.ComponentsWritten, comp)
	return strings.Join(parts, " ")
}

func intersects(x, y bitmap.Bitmap) bool {
	if x.Count() == 0 || y.Count() == 0 {
		return false
	}
	hit := false
	x.Range(func(k uint32) {
		if !hit && y.Contains(k) {
			hit = true
		}
	})
	return hit
}

func union(dst *bitmap.Bitmap, src bitmap.Bitmap) {
	src.Range(func(k uint32) { dst.Set(k) })
}
