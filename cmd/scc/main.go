// Command scc compiles a single C-like translation unit to x86-64 assembly.
//
// Usage:
//
//	scc [flags] <file.c>
//	scc [flags] -s "<source text>"
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	"gopkg.in/urfave/cli.v1"

	"github.com/tinyrange/scc/internal/asmsim"
	"github.com/tinyrange/scc/internal/compiler"
	"github.com/tinyrange/scc/internal/config"
	"github.com/tinyrange/scc/internal/diag"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("scc")

var (
	sourceFlag = cli.StringFlag{
		Name:  "s",
		Usage: "compile the given source text instead of a file",
	}
	debugFlag = cli.BoolFlag{
		Name:  "d",
		Usage: "dump tokens, nodes and resolved locals to stdout",
	}
	outputFlag = cli.StringFlag{
		Name:  "o",
		Usage: "assembly output file (default \"" + config.DefaultOutput + "\")",
	}
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	execFlag = cli.BoolFlag{
		Name:  "exec",
		Usage: "run the generated program in the built-in simulator and print its exit status",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity (0 quiet, 2 debug)",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "scc"
	app.Usage = "compile a C-like program to x86-64 AT&T assembly"
	app.ArgsUsage = "<file>"
	app.HideVersion = true
	app.Flags = []cli.Flag{sourceFlag, debugFlag, outputFlag, configFileFlag, execFlag, verbosityFlag}
	app.Action = run
	app.ErrWriter = colorable.NewColorableStderr()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(app.ErrWriter, err)
		os.Exit(1)
	}
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if file := ctx.String(configFileFlag.Name); file != "" {
		var err error
		if cfg, err = config.Load(file); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(outputFlag.Name) {
		cfg.Output = ctx.String(outputFlag.Name)
	}
	if ctx.Bool(debugFlag.Name) {
		cfg.Debug = true
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	return cfg, nil
}

func readSource(ctx *cli.Context) ([]byte, error) {
	if ctx.IsSet(sourceFlag.Name) {
		return []byte(ctx.String(sourceFlag.Name)), nil
	}
	if ctx.NArg() != 1 {
		return nil, fmt.Errorf("usage: scc [flags] <file> | scc [flags] -s \"<source>\"")
	}
	path := ctx.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.IO(err, "reading %s", path)
	}
	return data, nil
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.NewExitError(err, 2)
	}
	commonlog.Configure(cfg.Verbosity, nil)

	src, err := readSource(ctx)
	if err != nil {
		return cli.NewExitError(report(err, nil), 1)
	}

	opts := compiler.Options{}
	if cfg.Debug {
		opts.Debug = os.Stdout
	}
	var asm bytes.Buffer
	err = writeOutput(cfg.Output, func(w io.Writer) error {
		_, err := compiler.Compile(src, io.MultiWriter(w, &asm), opts)
		return err
	})
	if err != nil {
		return cli.NewExitError(report(err, compiler.Terminate(src)), 1)
	}
	log.Infof("wrote %s", cfg.Output)

	if ctx.Bool(execFlag.Name) {
		v, err := asmsim.Run(asm.String(), cfg.Entry)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("exec: %v", err), 1)
		}
		fmt.Printf("exit status: %d\n", asmsim.ExitCode(v))
	}
	return nil
}

// writeOutput creates path, hands a buffered writer to emit and closes the
// file on every path.
func writeOutput(path string, emit func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return diag.IO(err, "creating %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = diag.IO(cerr, "closing %s", path)
		}
	}()
	bw := bufio.NewWriter(f)
	if err := emit(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return diag.IO(err, "writing %s", path)
	}
	return nil
}

// report renders a compile error with the error kind highlighted when stderr
// is a terminal.
func report(err error, src []byte) string {
	color.NoColor = !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd())
	text := strings.TrimRight(diag.Render(err, src), "\n")
	if kind, ok := diag.KindOf(err); ok {
		name := kind.String()
		text = color.New(color.FgRed, color.Bold).Sprint(name) + text[len(name):]
	}
	return text
}
