// Offload - A tool to move photos and videos off a card by capture month
//
// This tool reads a source directory of photos and videos, extracts their
// capture date, GPS location and camera details, and copies them into a
// destination tree partitioned by year and month
// (destination/year=YYYY/month=MM/).
//
// Features:
//   - EXIF metadata for photos, exiftool metadata for videos
//   - Embedded GPS tracks from action cameras
//   - Optional date fallbacks from file names and filesystem timestamps
//   - Optional per-month zip archives
//   - Files without a usable date go to destination/unknown/ or are skipped
//
// Usage:
//
//	offload -s /Volumes/CARD/DCIM -d ~/Pictures            # Copy photos
//	offload -s card -d lib -m both -a                      # Archive photos and videos
//	offload -s card -d lib --skip-unknown --dry-run        # Preview, skip undated files
//	offload inspect -s card --group-by camera_model        # Count files per camera
//
// Resulting directory structure:
//
//	lib/
//	├── year=2023/
//	│   ├── month=05/      <- photo1.jpg, or photos.zip with --archive
//	│   └── month=06/
//	└── unknown/           <- Files without a usable date
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"media-offload/internal/bucket"
	"media-offload/internal/extract"
	"media-offload/internal/metadata"
	"media-offload/internal/offload"
)

// =============================================================================
// Commands
// =============================================================================

// app holds what every command shares: the filesystem, the layered
// configuration and the config file flag.
type app struct {
	fs      afero.Fs
	v       *viper.Viper
	cfgFile string
}

// newRootCmd builds the offload command tree on fs.
func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, v: newViper()}
	a.v.SetFs(fs)

	root := &cobra.Command{
		Use:   "offload",
		Short: "Copy photos and videos into year/month directories by capture date",
		Long: `Offload reads every photo or video directly inside the source directory,
extracts its capture date and copies it to destination/year=YYYY/month=MM/.
Files without a usable date go to destination/unknown/ unless --skip-unknown
is set. With --archive each month directory ends up as a single zip.

Every flag can also be set in the config file or as an OFFLOAD_ environment
variable, e.g. OFFLOAD_SKIP_UNKNOWN=true.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(a.v, a.cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOffload(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.offload.yaml)")
	pf.StringP(keySource, "s", "", "Source directory containing photos or videos")
	pf.StringP(keyMedia, "m", mediaPhotos, "Media to process: photos, videos or both")
	pf.String(keyLogLevel, defaultLevel, "Log level: debug, info, warning, error or critical")
	pf.String(keyLogFormat, formatText, "Log format: text or json")
	pf.Bool(keyFilenameDate, false, "Use a date found in the file name when metadata has none")
	pf.Bool(keyUseFileDate, false, "Use the file's creation time when a video's metadata has no date")
	pf.String(keyExifTool, "", "Path to the exiftool binary (default: exiftool on PATH)")

	f := root.Flags()
	f.StringP(keyDestination, "d", "", "Destination directory to copy files to")
	f.BoolP(keyArchive, "a", false, "Pack each destination directory into a single zip archive")
	f.Bool(keySkipUnknown, false, "Skip files without a usable date instead of copying them to unknown/")
	f.Bool(keyDryRun, false, "Show where files would go without writing anything")

	mustBind(a.v, pf, f)
	root.AddCommand(newInspectCmd(a))
	return root
}

// mustBind binds every flag of each set to the viper key of the same name.
func mustBind(v *viper.Viper, sets ...*pflag.FlagSet) {
	for _, set := range sets {
		if err := v.BindPFlags(set); err != nil {
			panic(err)
		}
	}
}

// setup resolves the configuration and builds the logger.
func (a *app) setup(out io.Writer) (config, *logrus.Logger, error) {
	cfg := loadConfig(a.v)
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat, out)
	if err != nil {
		return cfg, nil, err
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		log.Debugf("Using config file %s", used)
	}
	if cfg.Source == "" {
		return cfg, nil, errors.New("required flag \"source\" not set")
	}
	if err := extract.ValidateDir(a.fs, cfg.Source); err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// =============================================================================
// Offload
// =============================================================================

// runOffload offloads each selected media kind in turn. Logs go to
// logOut, the summary to out.
func (a *app) runOffload(out, logOut io.Writer) error {
	cfg, log, err := a.setup(logOut)
	if err != nil {
		return err
	}
	if cfg.Destination == "" {
		return errors.New("required flag \"destination\" not set")
	}
	kinds, err := mediaKinds(cfg.Media)
	if err != nil {
		return err
	}

	prober := extract.NewExifTool(cfg.ExifTool)
	defer prober.Close()

	opts := offload.Options{
		Archive:     cfg.Archive,
		SkipUnknown: cfg.SkipUnknown,
		DryRun:      cfg.DryRun,
	}
	for _, kind := range kinds {
		klog := log.WithField("media", kind.Name)
		o := offload.New(
			newReader(a.fs, kind, cfg, prober, klog),
			bucket.New(klog),
			offload.NewWriter(a.fs, kind, klog),
			klog,
		)
		sum, err := o.Offload(cfg.Source, cfg.Destination, opts)
		if err != nil {
			return err
		}
		printSummary(out, kind, sum, cfg.DryRun)
	}
	return nil
}

// printSummary reports the counts of one offload run.
func printSummary(w io.Writer, kind metadata.Kind, sum offload.Summary, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "\n[DRY RUN] Would offload %d of %d %s\n", sum.Total-sum.Skipped, sum.Total, kind.Plural())
	} else {
		fmt.Fprintf(w, "\nOffloaded %d of %d %s\n", sum.Written, sum.Total, kind.Plural())
	}
	if sum.Unknown > 0 {
		fmt.Fprintf(w, "  Unknown date:        %d\n", sum.Unknown)
	}
	if sum.InvalidFormat > 0 {
		fmt.Fprintf(w, "  Invalid date format: %d\n", sum.InvalidFormat)
	}
	if sum.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:             %d\n", sum.Skipped)
	}
}

// =============================================================================
// Main
// =============================================================================

func main() {
	if err := newRootCmd(afero.NewOsFs()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
