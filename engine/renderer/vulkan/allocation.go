package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/framecore/engine/core"
)

// InvalidAllocation marks a buffer or image that owns no memory.
const InvalidAllocation uint32 = math.MaxUint32

const initialAllocationCapacity = 64

// Allocation is one entry of the device allocation table. Entries are never
// removed; a released entry is flagged Freed.
type Allocation struct {
	ID     uuid.UUID
	Label  string
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Freed  bool
}

type allocationTable struct {
	entries []Allocation
}

func newAllocationTable() allocationTable {
	return allocationTable{entries: make([]Allocation, 0, initialAllocationCapacity)}
}

func (t *allocationTable) add(label string, memory vk.DeviceMemory, size vk.DeviceSize) uint32 {
	t.entries = append(t.entries, Allocation{
		ID:     uuid.New(),
		Label:  label,
		Memory: memory,
		Size:   size,
	})
	return uint32(len(t.entries) - 1)
}

// release flags the entry freed and hands back its memory for vkFreeMemory.
func (t *allocationTable) release(index uint32) vk.DeviceMemory {
	core.Assertf(index != InvalidAllocation, "resource has no allocation (already destroyed?)")
	core.Assertf(int(index) < len(t.entries), "allocation index %d out of range (%d entries)", index, len(t.entries))
	entry := &t.entries[index]
	core.Assertf(!entry.Freed, "allocation %d (%s, %s) freed twice", index, entry.Label, entry.ID)
	entry.Freed = true
	mem := entry.Memory
	entry.Memory = vk.NullDeviceMemory
	return mem
}

func (t *allocationTable) get(index uint32) (Allocation, bool) {
	if index == InvalidAllocation || int(index) >= len(t.entries) {
		return Allocation{}, false
	}
	return t.entries[index], true
}

// live returns every entry that has not been freed.
func (t *allocationTable) live() []Allocation {
	var out []Allocation
	for _, e := range t.entries {
		if !e.Freed {
			out = append(out, e)
		}
	}
	return out
}

func (t *allocationTable) len() int {
	return len(t.entries)
}
