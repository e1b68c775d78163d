package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/importer"
	"github.com/AaronLay10/zbxport/internal/validate"
)

func newImportCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Work with documents to be imported",
	}
	cmd.AddCommand(newImportCheckCmd(o))
	return cmd
}

// newImportCheckCmd creates the import check command
func newImportCheckCmd(o *options) *cobra.Command {
	var formatName string
	var resolveRefs bool

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Read, upgrade and adapt a document without importing it",
		Long: `Run the import pipeline over a document: parse it, validate it against
the schema of its declared version, upgrade it to the current version and
collect its objects. Nothing is written to the store.

With --resolve the names the document refers to but does not define are
looked up in the store; a name that cannot be found fails the check.

The result is printed as JSON. Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			f, err := o.documentFormat(formatName, name)
			if err != nil {
				return err
			}

			svc, closeStore, err := o.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := svc.CheckImport(cmd.Context(), data, f, resolveRefs)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "", "document format: xml, json or yaml")
	cmd.Flags().BoolVar(&resolveRefs, "resolve", false, "resolve outside references against the store")
	return cmd
}

// newValidateCmd creates the validate command
func newValidateCmd(o *options) *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a document against the schema of its version",
		Long: `Validate a document against the schema of the version it declares,
without upgrading it and without opening the store. Prints the version on
success; on failure the error names the offending path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			f, err := o.documentFormat(formatName, name)
			if err != nil {
				return err
			}
			r, err := format.NewReader(f)
			if err != nil {
				return err
			}
			root, err := r.Read(data)
			if err != nil {
				return err
			}
			version, err := validate.Document(root)
			if err != nil {
				return err
			}
			if _, err := validate.Version(root, version); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s document\n", name, version)
			return err
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "", "document format: xml, json or yaml")
	return cmd
}

// newConvertCmd creates the convert command
func newConvertCmd(o *options) *cobra.Command {
	var formatName string
	var toName string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Upgrade a document to the current version",
		Long: `Upgrade a document of any supported version to the current version and
write it in the requested format. The store is not consulted.

Examples:
  zbxport convert legacy.xml --to yaml -o current.yaml
  cat old.json | zbxport convert --format json --to xml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			from, err := o.documentFormat(formatName, name)
			if err != nil {
				return err
			}
			to := from
			if toName != "" {
				if to, err = format.Parse(toName); err != nil {
					return err
				}
			} else if outputFile != "" {
				if guessed, err := format.FromFilename(outputFile); err == nil {
					to = guessed
				}
			}

			doc, version, err := importer.Convert(cmd.Context(), data, from, importer.Options{Log: events.Logger()})
			if err != nil {
				return err
			}
			w, err := format.NewWriter(to)
			if err != nil {
				return err
			}
			out, err := w.Write(doc)
			if err != nil {
				return fmt.Errorf("write %s: %w", to, err)
			}
			events.Logger().Info("converted document", "from_version", version, "format", string(to))
			return writeOutput(cmd, outputFile, out)
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "", "input format: xml, json or yaml")
	cmd.Flags().StringVar(&toName, "to", "", "output format (default the input format)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	return cmd
}
