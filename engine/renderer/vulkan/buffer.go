package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

// Buffer is one GPU buffer and the device memory backing it. The Context's
// BufferPool owns every Buffer; drawables hold the pointer without owning it.
type Buffer struct {
	id         uint64
	Handle     vk.Buffer
	Memory     vk.DeviceMemory
	size       vk.DeviceSize
	usage      vk.BufferUsageFlags
	properties vk.MemoryPropertyFlags
	mapped     []byte
	released   bool
}

func (b *Buffer) ID() uint64                         { return b.id }
func (b *Buffer) Size() vk.DeviceSize                { return b.size }
func (b *Buffer) Usage() vk.BufferUsageFlags         { return b.usage }
func (b *Buffer) Properties() vk.MemoryPropertyFlags { return b.properties }

func (b *Buffer) IsVertex() bool {
	return b.usage&BufferUsageVertex != 0
}

func (b *Buffer) IsIndex() bool {
	return b.usage&BufferUsageIndex != 0
}

// Released reports whether the buffer has been returned to its pool.
func (b *Buffer) Released() bool {
	return b == nil || b.released
}

// Mapped returns the persistent host mapping, or nil when the buffer is not mapped.
func (b *Buffer) Mapped() []byte {
	return b.mapped
}

// BufferPool creates, tracks and releases the buffers of one Context.
// Identifiers are assigned from a counter owned by the pool.
type BufferPool struct {
	driver  Driver
	ids     core.IdentifierSource
	buffers map[uint64]*Buffer
}

func NewBufferPool(driver Driver) *BufferPool {
	return &BufferPool{
		driver:  driver,
		buffers: make(map[uint64]*Buffer),
	}
}

// findMemoryType returns the index of the first memory type allowed by filter
// whose flags contain every requested property.
func findMemoryType(types []vk.MemoryPropertyFlags, filter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range types {
		if filter&(1<<uint32(i)) != 0 && flags&properties == properties {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: filter %#x, properties %#x", core.ErrNoMemoryType, filter, uint32(properties))
}

func (p *BufferPool) Create(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("cannot create a buffer of size 0")
	}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	handle, reqs, err := p.driver.CreateBuffer(&createInfo)
	if err != nil {
		return nil, err
	}

	memoryType, err := findMemoryType(p.driver.MemoryTypes(), reqs.MemoryTypeBits, properties)
	if err != nil {
		p.driver.DestroyBuffer(handle)
		return nil, err
	}
	memory, err := p.driver.AllocateMemory(reqs.Size, memoryType)
	if err != nil {
		p.driver.DestroyBuffer(handle)
		return nil, err
	}
	if err := p.driver.BindBufferMemory(handle, memory); err != nil {
		p.driver.DestroyBuffer(handle)
		p.driver.FreeMemory(memory)
		return nil, err
	}

	buffer := &Buffer{
		id:         p.ids.Next(),
		Handle:     handle,
		Memory:     memory,
		size:       size,
		usage:      usage,
		properties: properties,
	}
	p.buffers[buffer.id] = buffer
	core.LogDebug("Buffer %d created (%d bytes).", buffer.id, size)
	return buffer, nil
}

// Get returns the live buffer registered under id.
func (p *BufferPool) Get(id uint64) (*Buffer, bool) {
	b, ok := p.buffers[id]
	return b, ok
}

func (p *BufferPool) Len() int {
	return len(p.buffers)
}

// Release destroys the buffer. Releasing a buffer twice, or one from another
// pool, does nothing.
func (p *BufferPool) Release(buffer *Buffer) {
	if buffer.Released() {
		return
	}
	if owned, ok := p.buffers[buffer.id]; !ok || owned != buffer {
		return
	}
	delete(p.buffers, buffer.id)
	if buffer.mapped != nil {
		p.driver.UnmapMemory(buffer.Memory)
		buffer.mapped = nil
	}
	p.driver.DestroyBuffer(buffer.Handle)
	p.driver.FreeMemory(buffer.Memory)
	buffer.Handle = vk.NullBuffer
	buffer.Memory = vk.NullDeviceMemory
	buffer.released = true
}

func (p *BufferPool) ReleaseAll() {
	for _, buffer := range p.buffers {
		p.Release(buffer)
	}
}

// Map maps the whole buffer and keeps the mapping until Unmap or release.
func (p *BufferPool) Map(buffer *Buffer) ([]byte, error) {
	if buffer.Released() {
		return nil, fmt.Errorf("buffer %d has been released", buffer.id)
	}
	if buffer.mapped != nil {
		return buffer.mapped, nil
	}
	if buffer.properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return nil, fmt.Errorf("buffer %d is not host visible", buffer.id)
	}
	data, err := p.driver.MapMemory(buffer.Memory, buffer.size)
	if err != nil {
		return nil, err
	}
	buffer.mapped = data
	return data, nil
}

func (p *BufferPool) Unmap(buffer *Buffer) {
	if buffer.Released() || buffer.mapped == nil {
		return
	}
	p.driver.UnmapMemory(buffer.Memory)
	buffer.mapped = nil
}

// Upload copies data to the start of the buffer. A buffer that was not
// already mapped is unmapped again afterwards.
func (p *BufferPool) Upload(buffer *Buffer, data []byte) error {
	if vk.DeviceSize(len(data)) > buffer.size {
		return fmt.Errorf("upload of %d bytes overflows buffer %d of %d bytes", len(data), buffer.id, buffer.size)
	}
	wasMapped := buffer.mapped != nil
	mapped, err := p.Map(buffer)
	if err != nil {
		return err
	}
	copy(mapped, data)
	if !wasMapped {
		p.Unmap(buffer)
	}
	return nil
}
