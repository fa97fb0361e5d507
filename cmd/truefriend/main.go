package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal"
	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal/gateway"
	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal/migrate"
	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal/repl"
	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal/version"
)

func NewTruefriendCommand() *cobra.Command {
	short := fmt.Sprintf("%s truefriend - one friend, every app (v%s)", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "truefriend",
		Short:   short,
		Example: "truefriend gateway",
	}

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		repl.NewReplCommand(),
		migrate.NewMigrateCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewTruefriendCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
