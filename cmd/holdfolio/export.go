package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/erazemk/holdfolio/internal/importer"
)

type exportCmd struct {
	user string
	file string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write an account's items and uses as an import document" }
func (*exportCmd) Usage() string {
	return `holdfolio export -user <email> [-file <path|->]

  Writes a replace-mode import document. Importing it restores the
  account's items and uses.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "account email")
	f.StringVar(&c.file, "file", "-", "output path, or - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "error: -user is required")
		return subcommands.ExitUsageError
	}

	e, err := setup(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	user, err := lookupUser(ctx, e, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}

	p, err := importer.Export(ctx, e.db, user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}

	var out io.Writer = os.Stdout
	if c.file != "-" {
		f, err := os.Create(c.file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		fmt.Fprintf(os.Stderr, "error: writing export: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
