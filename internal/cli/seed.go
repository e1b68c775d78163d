package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/zbxport/internal/config"
	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/storage"
	"github.com/AaronLay10/zbxport/internal/store"
)

func newSeedCmd(o *options) *cobra.Command {
	var fixturePath string

	cmd := &cobra.Command{
		Use:   "seed [fixture]",
		Short: "Load a YAML fixture into the SQL store",
		Long: `Write the rows of a YAML fixture into the configured sqlite or postgres
store. Rows are upserted, so seeding twice is harmless. Hidden rows are
written like any other.

The fixture defaults to store.fixture from zbxport.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				fixturePath = args[0]
			}
			if fixturePath == "" {
				fixturePath = o.cfg.Store.Fixture
			}
			if fixturePath == "" {
				return errors.New("no fixture given")
			}
			if o.cfg.Backend() == config.BackendFixture {
				return errors.New("the fixture backend is read from its file: seed needs sqlite or postgres")
			}

			f, err := store.LoadFixture(fixturePath)
			if err != nil {
				return fmt.Errorf("load fixture: %w", err)
			}
			b, closeStore, err := o.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			n, err := storage.Seed(cmd.Context(), b, f)
			if err != nil {
				events.Emit("error", "store.error", err.Error(), map[string]any{"fixture": fixturePath})
				return err
			}
			events.Emit("info", "store.seeded", "", map[string]any{
				"fixture": fixturePath,
				"backend": o.cfg.Backend(),
				"rows":    n,
			})
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows from %s\n", n, fixturePath)
			return err
		},
	}
	return cmd
}
