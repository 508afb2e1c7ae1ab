package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"sbstcmp/pkg/compiler"
)

func main() {
	app := &cli.App{
		Name:            "sbstcmp",
		Usage:           "compile a source file and report the first error, if any",
		ArgsUsage:       "<file>",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "T",
				Usage: "print the parse tree after a successful compilation",
			},
			&cli.BoolFlag{
				Name:  "tokens",
				Usage: "print the token stream instead of compiling",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: sbstcmp [-T] [--tokens] <file>", 1)
	}
	path := c.Args().First()

	if c.Bool("tokens") {
		return compiler.DumpTokens(os.Stdout, path)
	}

	program, err := compiler.Compile(path)
	if err != nil {
		return err
	}

	if c.Bool("T") {
		compiler.DumpTree(os.Stdout, program)
	}
	return nil
}
