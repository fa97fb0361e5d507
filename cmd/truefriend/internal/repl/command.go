package repl

import (
	"github.com/spf13/cobra"
)

func NewReplCommand() *cobra.Command {
	var debug bool
	var senderKey string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Talk to the companion from a local console",
		Args:  cobra.NoArgs,
		Example: `  truefriend repl
  truefriend repl --sender alice-dev
  truefriend repl --debug`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return replCmd(senderKey, debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&senderKey, "sender", "repl:default",
		"Sender key the console session is attributed to")

	return cmd
}
