package codegen

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// RuntimeEnvVar overrides the directory holding the runtime support object
// (the rt_read/rt_write helpers the generated code calls).
const RuntimeEnvVar = "STACKC_RUNTIME"

// defaultRuntimeDir is used when RuntimeEnvVar is unset.
const defaultRuntimeDir = "runtime"

// BuildExecutable writes the assembly next to the output binary as
// <outputPath>.s and links it against the runtime object with the system
// toolchain. Toolchain failures come back unchanged, with captured output.
func BuildExecutable(assembly string, outputPath string) error {
	asmPath := outputPath + ".s"
	if err := os.WriteFile(asmPath, []byte(assembly), 0o644); err != nil {
		return fmt.Errorf("failed to write assembly: %v", err)
	}

	runtimeObj, err := runtimeObject()
	if err != nil {
		return err
	}

	cmd := exec.Command("gcc", "-m32", "-no-pie", asmPath, runtimeObj, "-o", outputPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("toolchain failed: %v\n%s", err, output)
	}
	return nil
}

// runtimeObject locates the runtime object, compiling it from source on
// first use if only runtime.c is present.
func runtimeObject() (string, error) {
	dir := os.Getenv(RuntimeEnvVar)
	if dir == "" {
		dir = defaultRuntimeDir
	}

	objPath := filepath.Join(dir, "runtime.o")
	if _, err := os.Stat(objPath); err == nil {
		return objPath, nil
	}

	srcPath := filepath.Join(dir, "runtime.c")
	if _, err := os.Stat(srcPath); err != nil {
		return "", fmt.Errorf("runtime object not found in %q: set %s to the directory containing runtime.o or runtime.c", dir, RuntimeEnvVar)
	}
	cmd := exec.Command("gcc", "-m32", "-c", srcPath, "-o", objPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("building runtime failed: %v\n%s", err, output)
	}
	return objPath, nil
}
