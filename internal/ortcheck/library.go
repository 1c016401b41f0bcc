package ortcheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrLibraryNotFound is returned when no ONNX Runtime shared library can be
// located.
var ErrLibraryNotFound = errors.New("onnx runtime library not found")

const (
	osLinux    = "linux"
	osDarwin   = "darwin"
	osWindows  = "windows"
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// systemLibraryPaths lists well-known install locations, checked in order.
var systemLibraryPaths = []string{
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/libonnxruntime.so",
	"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
}

// FindLibrary returns the shared library to load. An explicit path must exist;
// otherwise the system locations are tried, then onnxruntime/lib under the
// nearest directory holding a go.mod or an onnxruntime directory.
func FindLibrary(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w at %s: %w", ErrLibraryNotFound, explicit, err)
		}
		return explicit, nil
	}

	for _, p := range systemLibraryPaths {
		if fileExists(p) {
			return p, nil
		}
	}

	libName, err := libraryName(runtime.GOOS)
	if err != nil {
		return "", err
	}
	root, err := findProjectRoot()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLibraryNotFound, err)
	}
	libPath := filepath.Join(root, "onnxruntime", "lib", libName)
	if !fileExists(libPath) {
		return "", fmt.Errorf("%w at %s", ErrLibraryNotFound, libPath)
	}
	return libPath, nil
}

// libraryName returns the library file name for goos.
func libraryName(goos string) (string, error) {
	switch goos {
	case osLinux:
		return libLinux, nil
	case osDarwin:
		return libDarwin, nil
	case osWindows:
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// findProjectRoot walks up from the working directory.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	root := cwd
	for {
		if fileExists(filepath.Join(root, "go.mod")) || fileExists(filepath.Join(root, "onnxruntime")) {
			return root, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", errors.New("could not find project root")
		}
		root = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
