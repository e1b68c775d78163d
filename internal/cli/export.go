package cli

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/zbxport/internal/export"
)

var selectionValidator = validator.New()

// newExportCmd creates the export command
func newExportCmd(o *options) *cobra.Command {
	var formatName string
	var outputFile string
	var sel export.Selection

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export selected objects as a configuration document",
		Long: `Export the selected objects, plus everything they depend on, as one
document of the current version.

Objects are selected by ID; each flag takes a comma separated list and can
be repeated. The format defaults to the output file extension and then to
export.format from zbxport.yaml.

Examples:
  zbxport export --groups 2 --hosts 10100,10101
  zbxport export --templates 10001 -o templates.yaml
  zbxport export --maps 1000 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sel.Empty() {
				return errors.New("nothing selected: pass at least one of --groups, --templates, --hosts, --screens, --images, --maps, --media-types or --value-maps")
			}
			if err := selectionValidator.Struct(sel); err != nil {
				return fmt.Errorf("invalid selection: IDs must be numeric: %w", err)
			}
			f, err := o.documentFormat(formatName, outputFile)
			if err != nil {
				return err
			}

			svc, closeStore, err := o.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			data, err := svc.Export(cmd.Context(), sel, f)
			if err != nil {
				return err
			}
			return writeOutput(cmd, outputFile, data)
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "", "document format: xml, json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringSliceVar(&sel.Groups, "groups", nil, "host group IDs")
	cmd.Flags().StringSliceVar(&sel.Templates, "templates", nil, "template IDs")
	cmd.Flags().StringSliceVar(&sel.Hosts, "hosts", nil, "host IDs")
	cmd.Flags().StringSliceVar(&sel.Screens, "screens", nil, "screen IDs")
	cmd.Flags().StringSliceVar(&sel.Images, "images", nil, "image IDs")
	cmd.Flags().StringSliceVar(&sel.Maps, "maps", nil, "map IDs")
	cmd.Flags().StringSliceVar(&sel.MediaTypes, "media-types", nil, "media type IDs")
	cmd.Flags().StringSliceVar(&sel.ValueMaps, "value-maps", nil, "value map IDs")

	return cmd
}
