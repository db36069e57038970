// Command fairsharectl inspects and administers a FairShare store directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/mmynk/fairshare/internal/config"
	"github.com/mmynk/fairshare/pkg/logging"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&balancesCmd{}, "ledger")
	commander.Register(&memberCmd{}, "ledger")
	commander.Register(&reportCmd{}, "ledger")
	commander.Register(&closeCmd{}, "admin")
	commander.Register(&tokenCmd{}, "admin")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	os.Exit(int(commander.Execute(context.Background(), cfg)))
}
