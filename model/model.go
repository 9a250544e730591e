// Package model holds the vertex data the renderer draws
// and the Vulkan input layout that describes it.
package model

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a model vertex
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec3
}

// Triangle is the colored triangle drawn when no other geometry is set
func Triangle() []Vertex {
	return []Vertex{
		{Pos: glm.Vec3{-0.5, 0.5, 0.0}, Color: glm.Vec3{1.0, 0.0, 0.0}},
		{Pos: glm.Vec3{0.0, -0.5, 0.0}, Color: glm.Vec3{0.0, 1.0, 0.0}},
		{Pos: glm.Vec3{0.5, 0.5, 0.0}, Color: glm.Vec3{0.0, 0.0, 1.0}},
	}
}

// Bytes views vertices as raw bytes for uploading into a vertex buffer.
// The result shares memory with vertices.
func Bytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	size := len(vertices) * int(unsafe.Sizeof(Vertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
	}
}
