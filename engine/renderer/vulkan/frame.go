package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

// FrameStats counts what the last recorded frame issued.
type FrameStats struct {
	Frame         uint64
	ImageIndex    uint32
	Draws         int
	PipelineBinds int
	PushConstants int
	Evicted       int
}

func (c *Context) LastFrame() FrameStats {
	return c.lastFrame
}

// RenderScene acquires a swapchain image, records the scene into its command
// buffer, submits it and presents. core.ErrSwapchainBooting means the frame
// was abandoned because the swapchain was rebuilt or cannot be rebuilt yet;
// the caller should try again next tick. Any other error is fatal.
func (c *Context) RenderScene() error {
	if c.framebufferSizeGeneration != c.framebufferSizeLastGeneration {
		if err := c.RecreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainBooting
	}

	imageIndex, res := c.driver.AcquireNextImage(c.swapchain.Handle, vk.MaxUint64, c.imageAvailableSemaphore)
	switch res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		// Trigger swapchain recreation, then boot out of the render loop.
		if err := c.RecreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainBooting
	default:
		return fmt.Errorf("%w: %s", core.ErrAcquireFailed, VulkanResultString(res, true))
	}
	if int(imageIndex) >= len(c.commandBuffers) {
		return fmt.Errorf("%w: image index %d out of range", core.ErrAcquireFailed, imageIndex)
	}

	commandBuffer := c.commandBuffers[imageIndex]
	if err := c.recordCommandBuffer(commandBuffer, imageIndex); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{c.imageAvailableSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{c.renderFinishedSemaphore},
	}
	if res := c.driver.QueueSubmit(c.driver.GraphicsQueue(), []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("%w: %s", core.ErrSubmitFailed, VulkanResultString(res, true))
	}
	commandBuffer.UpdateSubmitted()

	if err := c.driver.QueueWaitIdle(c.driver.PresentQueue()); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPresentFailed, err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{c.renderFinishedSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{c.swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	switch res := c.driver.QueuePresent(c.driver.PresentQueue(), &presentInfo); res {
	case vk.Success:
	case vk.ErrorOutOfDate, vk.Suboptimal:
		// The frame was presented or dropped; the next one needs a new swapchain.
		if err := c.RecreateSwapchain(); err != nil && !errors.Is(err, core.ErrSwapchainBooting) {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", core.ErrPresentFailed, VulkanResultString(res, true))
	}
	return nil
}

// recordCommandBuffer re-records commandBuffer from scratch by walking the
// scene. Entries whose drawable is gone are dropped from the scene; drawables
// without an index buffer are not drawn.
func (c *Context) recordCommandBuffer(commandBuffer *VulkanCommandBuffer, imageIndex uint32) error {
	if err := commandBuffer.Reset(c.driver); err != nil {
		return err
	}
	if err := commandBuffer.Begin(c.driver, true, false, false); err != nil {
		return err
	}

	extent := c.swapchain.Extent
	c.driver.CmdSetViewport(commandBuffer.Handle, vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	})
	c.driver.CmdSetScissor(commandBuffer.Handle, vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})

	c.renderpass.Begin(c.driver, commandBuffer, c.framebuffers[imageIndex].Handle, extent)

	c.frameCounter++
	stats := FrameStats{Frame: c.frameCounter, ImageIndex: imageIndex}
	bound := vk.NullPipeline
	live := c.scene[:0]
	for _, h := range c.scene {
		drawable, ok := c.drawables.Get(h)
		if !ok {
			stats.Evicted++
			continue
		}
		live = append(live, h)

		var indexCount uint32
		for _, buffer := range drawable.Buffers() {
			if buffer.Released() {
				continue
			}
			switch {
			case buffer.IsVertex():
				c.driver.CmdBindVertexBuffer(commandBuffer.Handle, 0, buffer.Handle)
			case buffer.IsIndex():
				c.driver.CmdBindIndexBuffer(commandBuffer.Handle, buffer.Handle, vk.IndexTypeUint16)
				indexCount = uint32(buffer.Size() / indexSize)
			}
		}
		if indexCount == 0 {
			continue
		}

		pipeline := drawable.Pipeline()
		if pipeline == nil || pipeline.Handle == vk.NullPipeline {
			continue
		}

		// model first, then the pipeline's view and projection
		matrix := drawable.ModelMatrix().Mul(pipeline.Matrix())
		c.driver.CmdPushConstants(commandBuffer.Handle, c.pipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, matrix.Bytes())
		stats.PushConstants++

		if pipeline.Handle != bound {
			c.driver.CmdBindPipeline(commandBuffer.Handle, pipeline.Handle)
			bound = pipeline.Handle
			stats.PipelineBinds++
		}

		c.driver.CmdDrawIndexed(commandBuffer.Handle, indexCount, 1, 0, 0, 0)
		stats.Draws++
	}
	clear(c.scene[len(live):])
	c.scene = live

	c.renderpass.End(c.driver, commandBuffer)
	if err := commandBuffer.End(c.driver); err != nil {
		return err
	}

	c.lastFrame = stats
	return nil
}
