package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s truefriend %s\n", internal.Logo, internal.FormatVersion())
			fmt.Printf("  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
