package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-cmis/pkg/cmis/typesys"
)

// NewTypesCommand creates the types command
func NewTypesCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "Print the type definitions as YAML",
		Long: `Load the base types plus the types file (CMIS_TYPES_FILE or --file) and
print the resulting definitions as YAML. Useful to check a types file before
starting the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				file = cfg.TypesFile
			}

			types := typesys.NewManager()
			if file != "" {
				n, err := types.LoadFile(file)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", file, err)
				}
				fmt.Fprintf(os.Stderr, "Loaded %d types from %s\n", n, file)
			}
			return types.WriteYAML(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "types file")

	return cmd
}
