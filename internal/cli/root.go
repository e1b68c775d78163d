// Package cli implements the zbxport command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/zbxport/internal/config"
	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/service"
	"github.com/AaronLay10/zbxport/internal/storage"
	"github.com/AaronLay10/zbxport/internal/store"
)

// defaultConfigPath is read when --config is not given and the file exists.
const defaultConfigPath = "zbxport.yaml"

// options holds the persistent flags and what they load.
type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd returns the zbxport command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "zbxport",
		Short: "Export and import monitoring configuration documents",
		Long: `zbxport exports monitoring configuration (host groups, templates, hosts,
screens, images, maps, media types and value maps) as XML, JSON or YAML
documents, and checks documents of any supported version for import.

Examples:
  zbxport export --hosts 10100 --format yaml
  zbxport import check export.xml --resolve
  zbxport convert legacy.xml --to json
  zbxport serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "path to zbxport.yaml (env ZBXPORT_CONFIG)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newExportCmd(o),
		newImportCmd(o),
		newValidateCmd(o),
		newConvertCmd(o),
		newSeedCmd(o),
		newServeCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads the configuration and installs the logger on w.
func (o *options) load(w io.Writer) error {
	path := o.configPath
	if path == "" {
		path = os.Getenv("ZBXPORT_CONFIG")
	}
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
	default:
		return fmt.Errorf("load config: %w", err)
	}
	o.cfg = cfg

	level := o.logLevel
	if level == "" {
		level = cfg.LogLevel()
	}
	events.SetLogger(events.NewLogger(w, level))
	return nil
}

// openStore opens the configured backend. SQL backends also record every
// event in their audit table until the returned close function runs.
func (o *options) openStore(ctx context.Context) (store.Backend, func(), error) {
	b, err := storage.Open(ctx, o.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", o.cfg.Backend(), err)
	}
	if a, ok := b.(storage.Auditor); ok {
		events.AddSink("audit", a)
	}
	return b, func() {
		events.RemoveSinks()
		if err := b.Close(); err != nil {
			events.Logger().Warn("close store", "error", err.Error())
		}
	}, nil
}

// openService opens the store and returns a service over it.
func (o *options) openService(ctx context.Context) (*service.Service, func(), error) {
	b, closeStore, err := o.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return service.New(b, events.Logger()), closeStore, nil
}

// documentFormat picks the format from flag, then from the file name, then
// from the configuration.
func (o *options) documentFormat(flag, name string) (format.Format, error) {
	if flag != "" {
		return format.Parse(flag)
	}
	if name != "" && name != "-" {
		if f, err := format.FromFilename(name); err == nil {
			return f, nil
		}
	}
	return format.Parse(o.cfg.ExportFormat())
}

// readInput reads the named file, or stdin for "-" or no name.
func readInput(cmd *cobra.Command, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, "-", err
	}
	data, err := os.ReadFile(args[0])
	return data, args[0], err
}

// writeOutput writes data to path, or to the command output for "" and "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
