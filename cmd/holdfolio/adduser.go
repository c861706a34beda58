package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"github.com/google/subcommands"

	"github.com/erazemk/holdfolio/internal/auth"
)

type addUserCmd struct {
	email    string
	password string
}

func (*addUserCmd) Name() string     { return "adduser" }
func (*addUserCmd) Synopsis() string { return "create an account" }
func (*addUserCmd) Usage() string {
	return `holdfolio adduser -email <address> [-password <password>]

  Creates an account. Without -password a random password is generated
  and printed once.
`
}

func (c *addUserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "account email")
	f.StringVar(&c.password, "password", "", "account password (default: generated)")
}

func (c *addUserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "error: -email is required")
		return subcommands.ExitUsageError
	}

	e, err := setup(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	password := c.password
	generated := password == ""
	if generated {
		if password, err = generatePassword(16); err != nil {
			fmt.Fprintf(os.Stderr, "error: generating password: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	user, err := auth.Register(ctx, e.db, c.email, password)
	if errors.Is(err, auth.ErrEmailTaken) {
		fmt.Fprintf(os.Stderr, "error: %s is already registered\n", c.email)
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}

	slog.Info("user created", "user", user.ID)
	fmt.Printf("Account created: %s\n", user.Email)
	if generated {
		fmt.Printf("Password: %s\n", password)
		fmt.Println("Save this password. It cannot be recovered.")
	}
	return subcommands.ExitSuccess
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
