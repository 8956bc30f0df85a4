package main

import (
	"fmt"
	"io"
	"os"

	_ "go.uber.org/automaxprocs"
)

const (
	exitOK = iota
	exitFailure
	exitUsage
)

func usage(w io.Writer) {
	fmt.Fprintf(w, `usage: xrbtree <command> [options]

commands:
  demo    build the sample tree, delete two keys and print it
  verify  run randomized insert/delete trials and validate every step

run "xrbtree <command> -h" for the command options.
`)
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitUsage
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "demo":
		opts, err := parseDemoOpts(rest, stderr)
		if err != nil {
			return exitUsage
		}
		return runApp(opts.app, stdout, func(app *cliApp) error {
			return runDemo(opts, app.logger, stdout)
		})
	case "verify":
		opts, err := parseVerifyOpts(rest, stderr)
		if err != nil {
			return exitUsage
		}
		return runApp(opts.app, stdout, func(app *cliApp) error {
			return runVerify(app.ctx, opts, app.logger)
		})
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return exitOK
	default:
	}
	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	usage(stderr)
	return exitUsage
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
