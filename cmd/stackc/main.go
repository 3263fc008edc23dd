// Command stackc compiles a textual stack-machine IR listing into an i386
// executable (or, with -S, into an assembly file).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"stackc/internal/codegen"
	"stackc/internal/ir"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("stackc", flag.ContinueOnError)
	output := fs.String("o", "", "output base name (default: input name without extension)")
	emitOnly := fs.Bool("S", false, "stop after writing the assembly file")
	runBinary := fs.Bool("run", false, "execute the produced binary")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stackc [-S] [-run] [-o name] <file>")
		return 2
	}

	srcPath := fs.Arg(0)
	src, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackc: %v\n", err)
		return 1
	}

	prog, err := ir.Parse(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackc: %s: %v\n", srcPath, err)
		return 1
	}

	assembly, err := codegen.Compile(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackc: %s: %v\n", srcPath, err)
		return 1
	}

	name := *output
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	}

	if *emitOnly {
		asmPath := name + ".s"
		if err := os.WriteFile(asmPath, []byte(assembly), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "stackc: %v\n", err)
			return 1
		}
		fmt.Println("Wrote:", asmPath)
		return 0
	}

	if err := codegen.BuildExecutable(assembly, name); err != nil {
		fmt.Fprintf(os.Stderr, "stackc: %v\n", err)
		return 1
	}
	fmt.Println("Compiled to:", name)

	if *runBinary {
		path := name
		if !filepath.IsAbs(path) {
			path = "./" + path
		}
		cmd := exec.Command(path)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return exitErr.ExitCode()
			}
			fmt.Fprintf(os.Stderr, "stackc: %v\n", err)
			return 1
		}
	}
	return 0
}
