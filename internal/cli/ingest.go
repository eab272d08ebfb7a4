package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCommand(opts *options) *cobra.Command {
	var maxImages int

	ccmd := &cobra.Command{
		Use:   "ingest",
		Short: "Download an image set and store a random sample",
		Long: `
Resolves an archive link from the configured listing page, downloads it unless
it is already present in the download directory, decodes every batch and
stores up to maxImages randomly chosen images.
`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if c.Flags().Changed("max-images") {
				opts.config.MaxImages = maxImages
			}

			svc, err := opts.newCoreService(c.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			summary, err := svc.Ingest(c.Context())
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			fmt.Fprintf(opts.stdout, "Extracted %d images, inserted %d from %s\n",
				summary.Extracted, summary.Inserted, summary.URL)
			return nil
		},
	}

	ccmd.Flags().IntVar(&maxImages, "max-images", 0, "override maxImages from the config")
	return ccmd
}
