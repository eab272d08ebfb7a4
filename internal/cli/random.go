package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRandomCommand(opts *options) *cobra.Command {
	var output string

	ccmd := &cobra.Command{
		Use:   "random",
		Short: "Write one random stored image to disk",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			svc, err := opts.newCoreService(c.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.ReportRandomImage(c.Context(), output, opts.stdout); err != nil {
				return fmt.Errorf("error fetching random image: %w", err)
			}
			return nil
		},
	}

	ccmd.Flags().StringVarP(&output, "output", "o", "", "file to write the image to (default outputPath from the config)")
	return ccmd
}
