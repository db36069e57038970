package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/mmynk/fairshare/internal/auth"
	"github.com/mmynk/fairshare/internal/config"
	"github.com/mmynk/fairshare/internal/ledger"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/mmynk/fairshare/internal/storage/memory"
	"github.com/mmynk/fairshare/internal/storage/postgres"
	"github.com/mmynk/fairshare/internal/storage/sqlite"
)

// openLedger opens the configured store and a controller over it. Events are
// logged, not published.
func openLedger(ctx context.Context, cfg *config.Config) (*ledger.Controller, storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store = memory.New()
	case config.DriverPostgres:
		store, err = postgres.New(ctx, cfg.DatabaseURL, postgres.PoolConfig{})
	default:
		store, err = sqlite.New(cfg.DBPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	return ledger.New(store, ledger.WithNotifier(notify.Log{})), store, nil
}

// ledgerCommand runs fn against an opened controller.
func ledgerCommand(ctx context.Context, args []any, fn func(*ledger.Controller) error) subcommands.ExitStatus {
	cfg := args[0].(*config.Config)
	ctrl, store, err := openLedger(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	if err := fn(ctrl); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// balancesCmd prints the netted debts of a group.
type balancesCmd struct {
	group uint64
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "print the outstanding debts of a group" }
func (*balancesCmd) Usage() string {
	return `fairsharectl balances -g <group>

  Prints one line per debt, "from -> to amount", sorted by debtor.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.group, "g", 0, "group ID")
}

func (c *balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if c.group == 0 {
		fmt.Fprintln(os.Stderr, "Error: -g is required")
		return subcommands.ExitUsageError
	}
	return ledgerCommand(ctx, args, func(ctrl *ledger.Controller) error {
		balances, err := ctrl.Balances(ctx, c.group)
		if err != nil {
			return err
		}
		for _, b := range balances {
			fmt.Printf("%s -> %s %s\n", b.From, b.To, b.Amount)
		}
		return nil
	})
}

// memberCmd prints one member's net balance.
type memberCmd struct {
	group  uint64
	member string
}

func (*memberCmd) Name() string     { return "member" }
func (*memberCmd) Synopsis() string { return "print a member's net balance in a group" }
func (*memberCmd) Usage() string {
	return `fairsharectl member -g <group> -m <member>

  Positive balances are owed to the member; negative balances are owed by them.
`
}

func (c *memberCmd) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.group, "g", 0, "group ID")
	f.StringVar(&c.member, "m", "", "member identity")
}

func (c *memberCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if c.group == 0 || c.member == "" {
		fmt.Fprintln(os.Stderr, "Error: -g and -m are required")
		return subcommands.ExitUsageError
	}
	return ledgerCommand(ctx, args, func(ctrl *ledger.Controller) error {
		balance, err := ctrl.MemberBalance(ctx, c.group, c.member)
		if err != nil {
			return err
		}
		fmt.Println(balance)
		return nil
	})
}

// closeCmd settles a group the way its settlement date would.
type closeCmd struct {
	group uint64
}

func (*closeCmd) Name() string     { return "close" }
func (*closeCmd) Synopsis() string { return "settle an active group now" }
func (*closeCmd) Usage() string {
	return `fairsharectl close -g <group>

  Records a settlement for every outstanding debt and marks the group Settled.
  Groups that are not Active are left unchanged.
`
}

func (c *closeCmd) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.group, "g", 0, "group ID")
}

func (c *closeCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if c.group == 0 {
		fmt.Fprintln(os.Stderr, "Error: -g is required")
		return subcommands.ExitUsageError
	}
	return ledgerCommand(ctx, args, func(ctrl *ledger.Controller) error {
		balances, err := ctrl.AutoSettle(ctx, c.group)
		if err != nil {
			return err
		}
		fmt.Printf("group %d settled with %d transfers\n", c.group, len(balances))
		return nil
	})
}

// reportCmd renders a group report as Markdown in the terminal.
type reportCmd struct {
	group uint64
	raw   bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "render a group report" }
func (*reportCmd) Usage() string {
	return `fairsharectl report -g <group> [-raw]

  Renders members, expenses, settlements and debts of a group.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.group, "g", 0, "group ID")
	f.BoolVar(&c.raw, "raw", false, "print Markdown without terminal styling")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if c.group == 0 {
		fmt.Fprintln(os.Stderr, "Error: -g is required")
		return subcommands.ExitUsageError
	}
	return ledgerCommand(ctx, args, func(ctrl *ledger.Controller) error {
		snap, summaries, err := ctrl.Summary(ctx, c.group)
		if err != nil {
			return err
		}

		md := reportMarkdown(snap, summaries)
		if c.raw {
			fmt.Print(md)
			return nil
		}
		return printMarkdown(md)
	})
}

func printMarkdown(md string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Print(out)
	return nil
}

// tokenCmd issues a bearer token for an address.
type tokenCmd struct {
	address string
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue a bearer token for an address" }
func (*tokenCmd) Usage() string {
	return `fairsharectl token -a <address>

  Signs a token with JWT_SECRET that lets the address call the ledger API.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.address, "a", "", "caller address")
}

func (c *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	cfg := args[0].(*config.Config)
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "Error: JWT_SECRET is not set")
		return subcommands.ExitFailure
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL).Generate(c.address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}
