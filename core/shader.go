package core

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gobuffalo/packr"

	"github.com/devblok/pyx/utility/kar"
)

// ShaderFile is a compiled SPIR-V shader
type ShaderFile struct {
	Name string
	Type ShaderType
	Code []byte
}

// ShaderSource provides compiled shaders
type ShaderSource interface {
	// Shaders returns every shader the source recognises,
	// files not named <name>.<vert|frag>.spv are skipped
	Shaders() ([]ShaderFile, error)
}

// DirectoryShaderSource reads shaders from a directory through a packr box,
// so the shaders can be packed into the binary with the packr tool.
type DirectoryShaderSource struct {
	box packr.Box
}

// NewDirectoryShaderSource creates a shader source over dir
func NewDirectoryShaderSource(dir string) (*DirectoryShaderSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &DirectoryShaderSource{
		box: packr.NewBox(abs),
	}, nil
}

// Shaders implements ShaderSource
func (d *DirectoryShaderSource) Shaders() ([]ShaderFile, error) {
	var shaders []ShaderFile
	for _, file := range d.box.List() {
		name, shaderType := ParseShaderName(file)
		if shaderType == UnknownShaderType {
			continue
		}
		code, err := d.box.Find(file)
		if err != nil {
			return nil, fmt.Errorf("read shader %s: %w", file, err)
		}
		shaders = append(shaders, ShaderFile{
			Name: name,
			Type: shaderType,
			Code: code,
		})
	}
	return shaders, nil
}

// ArchiveShaderSource reads shaders from a kar archive
type ArchiveShaderSource struct {
	archive *kar.Archive
}

// NewArchiveShaderSource creates a shader source over an opened archive
func NewArchiveShaderSource(archive *kar.Archive) *ArchiveShaderSource {
	return &ArchiveShaderSource{
		archive: archive,
	}
}

// Shaders implements ShaderSource
func (a *ArchiveShaderSource) Shaders() ([]ShaderFile, error) {
	var shaders []ShaderFile
	for _, file := range a.archive.Names() {
		name, shaderType := ParseShaderName(file)
		if shaderType == UnknownShaderType {
			continue
		}
		code, err := a.archive.ReadAll(file)
		if err != nil {
			return nil, err
		}
		shaders = append(shaders, ShaderFile{
			Name: name,
			Type: shaderType,
			Code: code,
		})
	}
	return shaders, nil
}

// PickShaderPair returns the vertex and fragment shader that share the
// alphabetically first name.
func PickShaderPair(shaders []ShaderFile) (vertex, fragment ShaderFile, err error) {
	fragments := make(map[string]ShaderFile)
	var names []string
	for _, s := range shaders {
		switch s.Type {
		case VertexShaderType:
			names = append(names, s.Name)
		case FragmentShaderType:
			fragments[s.Name] = s
		}
	}
	sort.Strings(names)

	for _, name := range names {
		f, ok := fragments[name]
		if !ok {
			continue
		}
		for _, s := range shaders {
			if s.Type == VertexShaderType && s.Name == name {
				return s, f, nil
			}
		}
	}
	return ShaderFile{}, ShaderFile{}, ErrNoShaders
}
