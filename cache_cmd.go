package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jacixn/inkami/internal/session"
)

var (
	cacheClear bool
	cachePrune bool

	cacheCmd = &cobra.Command{
		Use:     "cache",
		Short:   "Show or clear the audio cache",
		Long:    paragraph(fmt.Sprintf("\n%s the audio cache. Downloaded bubble audio and synthesized speech are kept there.", keyword("Inspect"))),
		Example: paragraph("inkami cache\ninkami cache --clear"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadReaderConfig()
			if err != nil {
				return err
			}
			if !cfg.Cache.Enabled {
				return errors.New("the audio cache is disabled")
			}
			m, err := session.OpenCache(cfg.Cache)
			if err != nil {
				return fmt.Errorf("unable to open cache: %w", err)
			}
			defer m.Close() //nolint:errcheck

			switch {
			case cacheClear:
				if err := m.Clear(); err != nil {
					return fmt.Errorf("unable to clear cache: %w", err)
				}
				fmt.Println("Cleared the audio cache")
				return nil
			case cachePrune:
				fmt.Printf("Pruned %s\n", humanize.Comma(int64(m.Prune()))+" entries")
				return nil
			}

			st := m.Stats()
			fmt.Printf("%s %s of %s, %s entries\n",
				keyword("disk  "),
				humanize.IBytes(uint64(max(0, st.Disk.Size))),     //nolint:gosec
				humanize.IBytes(uint64(max(0, st.Disk.Capacity))), //nolint:gosec
				humanize.Comma(st.Disk.ItemCount),
			)
			if !st.LastPrune.IsZero() {
				fmt.Printf("%s %s\n", keyword("pruned"), humanize.Time(st.LastPrune))
			}
			return nil
		},
	}
)

func init() {
	cacheCmd.Flags().BoolVar(&cacheClear, "clear", false, "remove every cached entry")
	cacheCmd.Flags().BoolVar(&cachePrune, "prune", false, "remove expired entries")
}
