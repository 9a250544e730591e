package main

import (
	"runtime"
)

func init() {
	// SDL and the Vulkan surface must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	Execute()
}
