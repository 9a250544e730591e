package core_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/pyx/core"
	"github.com/devblok/pyx/utility/kar"
)

var shaderFiles = map[string]string{
	"triangle.vert.spv": "vert",
	"triangle.frag.spv": "frag",
	"alpha.vert.spv":    "alpha vert",
	"notes.txt":         "not a shader",
}

func TestPickShaderPair(t *testing.T) {
	c := qt.New(t)

	c.Run("first complete pair by name", func(c *qt.C) {
		vertex, fragment, err := core.PickShaderPair([]core.ShaderFile{
			{Name: "zeta", Type: core.VertexShaderType},
			{Name: "zeta", Type: core.FragmentShaderType},
			{Name: "alpha", Type: core.VertexShaderType},
			{Name: "beta", Type: core.FragmentShaderType},
			{Name: "beta", Type: core.VertexShaderType},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(vertex, qt.DeepEquals, core.ShaderFile{Name: "beta", Type: core.VertexShaderType})
		c.Assert(fragment, qt.DeepEquals, core.ShaderFile{Name: "beta", Type: core.FragmentShaderType})
	})

	c.Run("no pair", func(c *qt.C) {
		_, _, err := core.PickShaderPair([]core.ShaderFile{
			{Name: "alpha", Type: core.VertexShaderType},
			{Name: "beta", Type: core.FragmentShaderType},
		})
		c.Assert(err, qt.ErrorIs, core.ErrNoShaders)
	})
}

func assertShaders(c *qt.C, source core.ShaderSource) {
	shaders, err := source.Shaders()
	c.Assert(err, qt.IsNil)
	c.Assert(shaders, qt.HasLen, 3)

	vertex, fragment, err := core.PickShaderPair(shaders)
	c.Assert(err, qt.IsNil)
	c.Assert(vertex.Name, qt.Equals, "triangle")
	c.Assert(string(vertex.Code), qt.Equals, "vert")
	c.Assert(fragment.Type, qt.Equals, core.FragmentShaderType)
	c.Assert(string(fragment.Code), qt.Equals, "frag")
}

func TestDirectoryShaderSource(t *testing.T) {
	c := qt.New(t)

	dir := c.TempDir()
	for name, content := range shaderFiles {
		c.Assert(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644), qt.IsNil)
	}

	source, err := core.NewDirectoryShaderSource(dir)
	c.Assert(err, qt.IsNil)
	assertShaders(c, source)
}

func TestArchiveShaderSource(t *testing.T) {
	c := qt.New(t)

	builder, err := kar.NewBuilder(kar.Header{Author: "pyx"})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { builder.Close() })

	for name, content := range shaderFiles {
		c.Assert(builder.Add(name, strings.NewReader(content)), qt.IsNil)
	}
	var buf bytes.Buffer
	_, err = builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	archive, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	defer archive.Close()

	assertShaders(c, core.NewArchiveShaderSource(archive))
}
