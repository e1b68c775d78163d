package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the zbxport version and the supported document versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "zbxport %s (documents %v, exports %s)\n",
				version.Version, schema.Versions(), schema.CurrentVersion)
			return err
		},
	}
}
