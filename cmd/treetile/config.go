package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/treetile/internal/config"
)

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  treetile config init [--path PATH] [--force]")
	fmt.Fprintln(os.Stderr, "  treetile config validate [--path PATH]")
	fmt.Fprintln(os.Stderr, "  treetile config print [--path PATH] [--defaults]")
	fmt.Fprintln(os.Stderr, "  treetile config explain [--path PATH] <yaml.path>")
}

func runConfig(args []string) int {
	if len(args) == 0 || isHelp(args) {
		printConfigUsage()
		return 2
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/treetile/config.yaml)")
	printDefaults := fs.Bool("defaults", false, "Print built-in defaults (print only)")
	force := fs.Bool("force", false, "Overwrite an existing file (init only)")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	switch args[0] {
	case "init":
		return configInit(*path, *force)

	case "validate":
		res, err := loadConfigWithSources(*path)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("config: ok (%d file(s))\n", len(res.Files))
		return 0

	case "print":
		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfigWithSources(*path)
			if err != nil {
				return fail(err)
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fail(err)
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfigWithSources(*path)
		if err != nil {
			return fail(err)
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			return fail(err)
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			return fail(err)
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		printConfigUsage()
		return 2
	}
}

// configInit writes the defaults to path, or to the standard location.
func configInit(path string, force bool) int {
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return fail(err)
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", path)
		return 1
	}
	if err := config.DefaultConfig().SaveTo(path); err != nil {
		return fail(err)
	}
	fmt.Printf("wrote %s\n", path)
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
