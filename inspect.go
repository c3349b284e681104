package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"media-offload/internal/bucket"
	"media-offload/internal/extract"
	"media-offload/internal/metadata"
)

// =============================================================================
// Inspect
// =============================================================================

const absent = "-"

func newInspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the metadata extracted from the source directory",
		Long: `Inspect reads the source directory the same way offload does and prints
one line per file, ordered by --sort-by. With --group-by it prints the
bucket keys and how many files fall into each instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.String(keySortBy, string(bucket.YearMonthDay), "Attribute to sort by")
	f.String(keyGroupBy, "", "Attribute to group by (software, camera_make, camera_model, year, year_month, year_month_day)")
	mustBind(a.v, f)
	return cmd
}

// runInspect prints the records of every selected media kind.
func (a *app) runInspect(out, logOut io.Writer) error {
	cfg, log, err := a.setup(logOut)
	if err != nil {
		return err
	}
	kinds, err := mediaKinds(cfg.Media)
	if err != nil {
		return err
	}
	sortBy, err := bucket.ParseGroupBy(a.v.GetString(keySortBy))
	if err != nil {
		return err
	}
	var groupBy bucket.GroupBy
	if s := a.v.GetString(keyGroupBy); s != "" {
		if groupBy, err = bucket.ParseGroupBy(s); err != nil {
			return err
		}
	}

	prober := extract.NewExifTool(cfg.ExifTool)
	defer prober.Close()

	var records []metadata.MediaMetadata
	for _, kind := range kinds {
		klog := log.WithField("media", kind.Name)
		rs, err := newReader(a.fs, kind, cfg, prober, klog).Read(cfg.Source)
		if err != nil {
			return err
		}
		records = append(records, rs...)
	}

	g := bucket.New(log)
	if groupBy != "" {
		buckets, err := g.Bucket(records, groupBy)
		if err != nil {
			return err
		}
		return printBuckets(out, groupBy, buckets)
	}
	sorted, err := g.Sort(records, sortBy)
	if err != nil {
		return err
	}
	return printRecords(out, sorted)
}

func printBuckets(w io.Writer, by bucket.GroupBy, buckets bucket.Buckets) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tFILES\n", by)
	for _, k := range buckets.Keys() {
		fmt.Fprintf(tw, "%s\t%d\n", k, len(buckets[k]))
	}
	return tw.Flush()
}

func printRecords(w io.Writer, records []metadata.MediaMetadata) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tDATE\tLOCATION\tMAKE\tMODEL\tSOFTWARE")
	for _, m := range records {
		date := absent
		if m.DateTaken != nil {
			date = m.DateTaken.Format("2006-01-02 15:04:05")
		}
		loc := absent
		if m.Location != nil {
			loc = fmt.Sprintf("%.6f,%.6f", m.Location.Latitude, m.Location.Longitude)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Path, date, loc, orAbsent(m.CameraMake), orAbsent(m.CameraModel), orAbsent(m.Software))
	}
	return tw.Flush()
}

func orAbsent(s *string) string {
	if s == nil {
		return absent
	}
	return *s
}
