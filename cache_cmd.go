package main

import (
	"fmt"

	"github.com/audioplayers/audioplayers/internal/cache"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var clearCache bool

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Short:   "Show or clear the decoded sample cache",
	Long:    paragraph(fmt.Sprintf("\n%s the on-disk cache of decoded samples. Expired samples are removed when the cache is opened.", keyword("Inspect"))),
	Example: paragraph("audioplayers cache\naudioplayers cache --clear"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc, ok, err := cfg.CacheStore()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), paragraph("The sample cache is disabled."))
			return nil
		}

		store, err := cache.NewStore(cc)
		if err != nil {
			return fmt.Errorf("unable to open sample cache: %w", err)
		}
		defer func() { _ = store.Close() }()

		if clearCache {
			if err := store.Clear(); err != nil {
				return fmt.Errorf("unable to clear sample cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), paragraph(fmt.Sprintf("Cleared sample cache in %s.", keyword(cc.DiskPath))))
			return nil
		}

		disk, ok := store.Stats()[cache.LevelDisk]
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), paragraph("Samples are cached in memory only."))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), paragraph(fmt.Sprintf("%s samples using %s of %s in %s",
			keyword(humanize.Comma(disk.ItemCount)),
			humanize.IBytes(uint64(disk.Size)),
			humanize.IBytes(uint64(disk.Capacity)),
			cc.DiskPath)))
		return nil
	},
}

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "remove every cached sample")
}
