package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// newVersionCmd prints build version information.
func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cmdcache version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cmdcache %s (%s %s/%s)\n", ver, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
