package cli

import (
	"context"
	"fmt"

	"github.com/jo-hoe/imageset/internal/backend/database"
	"github.com/spf13/cobra"
)

func newSchemaCommand(opts *options) *cobra.Command {
	ccmd := &cobra.Command{
		Use:   "schema",
		Short: "Create or drop the tb_images table",
	}

	ccmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create tb_images if it does not exist",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				return withStore(c.Context(), opts, func(store database.DatabaseService) error {
					if err := store.CreateSchema(c.Context()); err != nil {
						return fmt.Errorf("error creating table: %w", err)
					}
					fmt.Fprintln(opts.stdout, "Table 'tb_images' created successfully (or already exists).")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "drop",
			Short: "Drop tb_images and every stored image",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				return withStore(c.Context(), opts, func(store database.DatabaseService) error {
					if err := store.DropSchema(c.Context()); err != nil {
						return fmt.Errorf("error dropping table: %w", err)
					}
					fmt.Fprintln(opts.stdout, "Table 'tb_images' dropped successfully.")
					return nil
				})
			},
		},
	)
	return ccmd
}

// withStore opens the configured store without touching the schema and
// closes it after fn returns.
func withStore(ctx context.Context, opts *options, fn func(database.DatabaseService) error) error {
	store, err := database.NewDatabase(ctx, opts.config.Database.Type, opts.config.Database.ConnectionString, false)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
