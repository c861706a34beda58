package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/metrics"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/money"
	"github.com/erazemk/holdfolio/internal/store"
)

type dashboardCmd struct {
	user string
	asOf string
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "print an account's items and metrics as of a date" }
func (*dashboardCmd) Usage() string {
	return `holdfolio dashboard -user <email> [-asof YYYY-MM-DD]
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "account email")
	f.StringVar(&c.asOf, "asof", "", "reference date (default: today)")
}

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "error: -user is required")
		return subcommands.ExitUsageError
	}

	asOf := day.Truncate(time.Now())
	if c.asOf != "" {
		t, err := day.Parse(c.asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return subcommands.ExitUsageError
		}
		asOf = t
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

	items, err := store.ListItemsWithMetrics(ctx, e.db, user.ID, asOf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}

	rows, totals := metrics.Summarize(items, asOf)
	if err := printDashboard(os.Stdout, asOf, rows, totals); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printDashboard(w io.Writer, asOf time.Time, rows []model.ItemRow, totals model.Totals) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "As of %s\t\t\t\t\t\t\n", day.Format(asOf))
	fmt.Fprintln(tw, "NAME\tACQUIRED\tDAYS\tCOST\tUSES\tCOST/USE\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t\n",
			r.Name,
			orDash(r.AcquiredAt),
			intOrDash(r.HoldingDays),
			money.FormatCents(r.CostCents),
			r.Uses,
			centsOrDash(r.CostPerUseCents),
		)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%s\t%d\t%s\t\n",
		money.FormatCents(totals.CostCents),
		totals.Uses,
		centsOrDash(totals.AvgCostPerUseCents),
	)
	return tw.Flush()
}

func orDash(s *string) string {
	if s == nil {
		return "—"
	}
	return *s
}

func intOrDash(n *int) string {
	if n == nil {
		return "—"
	}
	return strconv.Itoa(*n)
}

func centsOrDash(c *int64) string {
	if c == nil {
		return "—"
	}
	return money.FormatCents(*c)
}
