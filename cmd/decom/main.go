// Command decom loads a Troll bytecode chunk file and prints its
// disassembly (§6). It never logs — its whole job is writing the
// disassembly to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"troll/internal/chunk"
	"troll/internal/codec"
)

const (
	exitIOError    = 74
	exitUsageError = 64
)

var constantsOnly bool

func main() {
	root := &cobra.Command{
		Use:           "decom <file>",
		Short:         "Load and disassemble a compiled Troll bytecode chunk",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().BoolVar(&constantsOnly, "constants-only", false, "print only the constant pool, not the instruction stream")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return ioError{err}
	}
	defer f.Close()

	chk, err := codec.Load(f)
	if err != nil {
		return ioError{err}
	}

	if constantsOnly {
		printConstants(chk)
		return nil
	}

	fmt.Print(chunk.Disassemble(chk, path))
	return nil
}

func printConstants(chk *chunk.Chunk) {
	fmt.Printf("== %s constants ==\n", "constant pool")
	for i, v := range chk.Constants {
		if v.IsString() {
			fmt.Printf("%4d '%s'\n", i, v.Obj.Quoted())
			continue
		}
		fmt.Printf("%4d '%s'\n", i, v.String())
	}
}

type ioError struct{ err error }

func (e ioError) Error() string { return e.err.Error() }

func exitFor(err error) int {
	switch err.(type) {
	case ioError:
		return exitIOError
	default:
		return exitUsageError
	}
}
