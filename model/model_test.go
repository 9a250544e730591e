package model_test

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/pyx/model"
)

func TestVertexLayout(t *testing.T) {
	c := qt.New(t)

	bindings := model.VertexBindingDescriptions()
	c.Assert(bindings, qt.HasLen, 1)
	c.Assert(bindings[0].Stride, qt.Equals, uint32(24))

	attributes := model.VertexAttributeDescriptions()
	c.Assert(attributes, qt.HasLen, 2)
	c.Assert(attributes[0].Offset, qt.Equals, uint32(0))
	c.Assert(attributes[1].Offset, qt.Equals, uint32(12))
	c.Assert(attributes[1].Location, qt.Equals, uint32(1))
}

func TestBytes(t *testing.T) {
	c := qt.New(t)

	vertices := model.Triangle()
	data := model.Bytes(vertices)
	c.Assert(data, qt.HasLen, len(vertices)*int(unsafe.Sizeof(model.Vertex{})))

	// second float of the first vertex is its y position
	y := math.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))
	c.Assert(y, qt.Equals, float32(0.5))

	c.Assert(model.Bytes(nil), qt.IsNil)
}
