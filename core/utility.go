package core

import (
	"strings"
	"unsafe"
)

const shaderSuffix = ".spv"

// ParseShaderName splits a compiled shader file name into the shader name
// and its type. It is important that the file name does not contain more
// than two dots, the first is always the name of the shader, second is type,
// and the third one ensures that the shader is compiled (only compiled
// shaders have an .spv extension). Anything else is UnknownShaderType.
func ParseShaderName(filename string) (string, ShaderType) {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	if !strings.HasSuffix(filename, shaderSuffix) {
		return "", UnknownShaderType
	}

	nodes := strings.Split(strings.TrimSuffix(filename, shaderSuffix), ".")
	if len(nodes) != 2 || nodes[0] == "" {
		return "", UnknownShaderType
	}

	switch nodes[1] {
	case "vert":
		return nodes[0], VertexShaderType
	case "frag":
		return nodes[0], FragmentShaderType
	default:
		return "", UnknownShaderType
	}
}

// SliceUint32 reslices bytes into a uint32, that is used
// to sumbit vulkan shaders for processing
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

func trimNull(s string) string {
	return strings.TrimRight(s, "\x00")
}

func contains(list []string, name string) bool {
	for _, l := range list {
		if l == name {
			return true
		}
	}
	return false
}

func containsUint32(list []uint32, v uint32) bool {
	for _, l := range list {
		if l == v {
			return true
		}
	}
	return false
}
