package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"media-offload/internal/extract"
	"media-offload/internal/metadata"
)

// =============================================================================
// Configuration
// =============================================================================

// Configuration keys. Each is also a flag name and, upper-cased with an
// OFFLOAD_ prefix, an environment variable.
const (
	keySource       = "source"
	keyDestination  = "destination"
	keyArchive      = "archive"
	keyMedia        = "media"
	keyLogLevel     = "log-level"
	keyLogFormat    = "log-format"
	keySkipUnknown  = "skip-unknown"
	keyUseFileDate  = "use-file-date"
	keyFilenameDate = "filename-date"
	keyDryRun       = "dry-run"
	keyExifTool     = "exiftool"
	keySortBy       = "sort-by"
	keyGroupBy      = "group-by"

	envPrefix     = "OFFLOAD"
	configName    = ".offload"
	configType    = "yaml"
	mediaPhotos   = "photos"
	mediaVideos   = "videos"
	mediaBoth     = "both"
	formatText    = "text"
	formatJSON    = "json"
	defaultLevel  = "info"
	levelCritical = "critical"
)

// config is the resolved set of options for one run.
type config struct {
	Source       string
	Destination  string
	Archive      bool
	Media        string
	LogLevel     string
	LogFormat    string
	SkipUnknown  bool
	UseFileDate  bool
	FilenameDate bool
	DryRun       bool
	ExifTool     string
}

// newViper returns a viper instance reading OFFLOAD_* environment variables.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// readConfigFile loads cfgFile, or $HOME/.offload.yaml when cfgFile is
// empty. Only an explicitly named file is required to exist.
func readConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("failed to read config %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// loadConfig reads every key from v.
func loadConfig(v *viper.Viper) config {
	return config{
		Source:       v.GetString(keySource),
		Destination:  v.GetString(keyDestination),
		Archive:      v.GetBool(keyArchive),
		Media:        v.GetString(keyMedia),
		LogLevel:     v.GetString(keyLogLevel),
		LogFormat:    v.GetString(keyLogFormat),
		SkipUnknown:  v.GetBool(keySkipUnknown),
		UseFileDate:  v.GetBool(keyUseFileDate),
		FilenameDate: v.GetBool(keyFilenameDate),
		DryRun:       v.GetBool(keyDryRun),
		ExifTool:     v.GetString(keyExifTool),
	}
}

// =============================================================================
// Logging
// =============================================================================

// parseLevel accepts the logrus level names plus "critical", which only
// lets fatal messages through.
func parseLevel(s string) (logrus.Level, error) {
	if strings.EqualFold(s, levelCritical) {
		return logrus.FatalLevel, nil
	}
	return logrus.ParseLevel(s)
}

// newLogger builds the single logger handed to every component.
func newLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	switch strings.ToLower(format) {
	case formatText, "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case formatJSON:
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", format, formatText, formatJSON)
	}
	return log, nil
}

// =============================================================================
// Wiring
// =============================================================================

// mediaKinds maps the media selector to the kinds to process, photos first.
func mediaKinds(media string) ([]metadata.Kind, error) {
	switch strings.ToLower(media) {
	case mediaPhotos:
		return []metadata.Kind{metadata.Photo}, nil
	case mediaVideos:
		return []metadata.Kind{metadata.Video}, nil
	case mediaBoth:
		return []metadata.Kind{metadata.Photo, metadata.Video}, nil
	}
	return nil, fmt.Errorf("unknown media %q (want %s, %s or %s)", media, mediaPhotos, mediaVideos, mediaBoth)
}

// newReader builds the Reader for kind. Videos, and photos goexif cannot
// read, are probed with prober.
// The file-name fallback applies to every kind, the filesystem date
// fallback to videos only.
func newReader(fs afero.Fs, kind metadata.Kind, cfg config, prober extract.Prober, log logrus.FieldLogger) *extract.Reader {
	var ex extract.Extractor = extract.NewPhotoExtractor(fs, prober)
	isVideo := kind.Name == metadata.Video.Name
	if isVideo {
		ex = extract.NewVideoExtractor(fs, prober, log)
	}

	var fallbacks []extract.DateFallback
	if cfg.FilenameDate {
		fallbacks = append(fallbacks, extract.FilenameDate)
	}
	if cfg.UseFileDate && isVideo {
		fallbacks = append(fallbacks, extract.FileDate(fs))
	}
	return extract.NewReader(fs, kind, ex, log, fallbacks...)
}
