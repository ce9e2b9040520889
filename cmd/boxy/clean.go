package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"boxy/internal/cache"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached meshes",
		Long:  "Remove every entry of the mesh cache. With --stats only report its size.",
		Args:  cobra.NoArgs,
		RunE:  runClean,
	}
	cmd.Flags().Bool("stats", false, "report cache size without removing anything")
	cmd.Flags().String("cache-dir", "", "cache directory (defaults to the user cache dir)")
	return cmd
}

func runClean(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return err
	}
	if dir == "" {
		if dir, err = cache.DefaultDir("boxy"); err != nil {
			return err
		}
	}
	c, err := cache.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	entries, size, err := c.Stats()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	statsOnly, _ := cmd.Flags().GetBool("stats")
	if statsOnly {
		fmt.Fprintf(out, "%s: %d entries, %s\n", c.Dir(), entries, humanBytes(size))
		return nil
	}
	if err := c.DropAll(); err != nil {
		return fmt.Errorf("failed to clear %q: %w", c.Dir(), err)
	}
	fmt.Fprintf(out, "removed %d entries (%s) from %s\n", entries, humanBytes(size), c.Dir())
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
