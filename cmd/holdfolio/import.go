package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/importer"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

type importCmd struct {
	user string
	file string
	mode string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "apply an import document to an account" }
func (*importCmd) Usage() string {
	return `holdfolio import -user <email> -file <path|-> [-mode merge|replace]

  Reads an import document and applies it to the account in one transaction.
  -mode overrides the document's own mode.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "account email")
	f.StringVar(&c.file, "file", "-", "import document path, or - for stdin")
	f.StringVar(&c.mode, "mode", "", "merge or replace (default: the document's mode)")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "error: -user is required")
		return subcommands.ExitUsageError
	}
	switch importer.Mode(c.mode) {
	case "", importer.ModeMerge, importer.ModeReplace:
	default:
		fmt.Fprintf(os.Stderr, "error: unknown mode %q\n", c.mode)
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

	var in io.Reader = os.Stdin
	if c.file != "-" {
		f, err := os.Open(c.file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		in = f
	}

	data, err := readLimited(in, e.cfg.Import.MaxBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}

	payload, err := importer.ParseBytes(data)
	if err == nil {
		if c.mode != "" {
			payload.Mode = importer.Mode(c.mode)
		}
		var res importer.Result
		res, err = importer.Apply(ctx, e.db, user.ID, payload, importer.Options{
			Today:     day.Today(time.Now()),
			BatchSize: e.cfg.Import.BatchSize,
		})
		if err == nil {
			fmt.Printf("mode:    %s\ncreated: %d\nupdated: %d\ndeleted: %d\nuses:    %d\n",
				res.Mode, res.Created, res.Updated, res.Deleted, res.Uses)
			return subcommands.ExitSuccess
		}
	}

	var verr *importer.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(os.Stderr, "import rejected:")
		for _, p := range verr.Problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return subcommands.ExitFailure
}

// errTooLarge reports an import document over import.max_bytes.
var errTooLarge = errors.New("import document too large")

// readLimited reads all of r, failing once more than limit bytes arrive.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading import document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", errTooLarge, limit)
	}
	return data, nil
}

// lookupUser resolves an account by email.
func lookupUser(ctx context.Context, e *env, email string) (*model.User, error) {
	normalized, err := model.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := store.GetUserByEmail(ctx, e.db, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no account for %s", normalized)
	}
	return user, nil
}
