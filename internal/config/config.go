package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "SLIDEREEL"

type Config struct {
	// Editing
	MaxImages int `json:"max_images" validate:"min=1"`

	// Playback
	TickPeriod time.Duration `json:"tick_period" validate:"gt=0"`
	FadeWindow time.Duration `json:"fade_window" validate:"gte=0"`
	Preview    bool          `json:"preview"`
	Replay     bool          `json:"replay"`

	// Export
	Title           string        `json:"title"`
	ExportStep      int           `json:"export_step" validate:"min=1,max=100"`
	ExportStepDelay time.Duration `json:"export_step_delay" validate:"gte=0"`
	ExportRetries   int           `json:"export_retries" validate:"min=0,max=10"`
	FramesOutput    string        `json:"frames_output"`

	// Rendering
	Preset      string `json:"preset" validate:"omitempty,oneof=16:9 9:16 4:5"`
	Width       int    `json:"width" validate:"min=16"`
	Height      int    `json:"height" validate:"min=16"`
	ThumbWidth  int    `json:"thumb_width" validate:"min=1"`
	ThumbHeight int    `json:"thumb_height" validate:"min=1"`
	Workers     int    `json:"workers" validate:"min=0"`
	DPI         int    `json:"dpi" validate:"min=36,max=1200"`

	// Input
	ProjectPath string `json:"project"`
	InputPath   string `json:"input"`
	SavePath    string `json:"save"`

	// Logging
	LogLevel  string `json:"log_level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	LogFormat string `json:"log_format" validate:"oneof=console json"`
	LogPath   string `json:"log_path"`
}

type configVar[T any] struct {
	flagKey      string
	defaultValue T
	usage        string
}

var (
	configFile = configVar[string]{"config", "", "YAML config file"}

	maxImages = configVar[int]{"max-images", 5, "Maximum number of image slides"}

	tickPeriod = configVar[time.Duration]{"tick-period", 100 * time.Millisecond, "Playback clock period"}
	fadeWindow = configVar[time.Duration]{"fade", 500 * time.Millisecond, "Fade-out window at the end of each slide"}
	preview    = configVar[bool]{"preview", true, "Play the sequence before exporting"}
	replay     = configVar[bool]{"replay", false, "Replay the exported video from the library"}

	title           = configVar[string]{"title", "", "Video title (default: Video N)"}
	exportStep      = configVar[int]{"export-step", 10, "Export progress step in percent"}
	exportStepDelay = configVar[time.Duration]{"export-step-delay", 500 * time.Millisecond, "Delay between export progress steps"}
	exportRetries   = configVar[int]{"export-retries", 2, "Encode retries before an export fails"}
	framesOutput    = configVar[string]{"frames-out", "", "Write exported keyframes as raw RGBA to this file"}

	preset      = configVar[string]{"preset", "", "Frame preset: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)"}
	width       = configVar[int]{"width", 1280, "Frame width"}
	height      = configVar[int]{"height", 720, "Frame height"}
	thumbWidth  = configVar[int]{"thumb-width", 180, "Thumbnail width"}
	thumbHeight = configVar[int]{"thumb-height", 100, "Thumbnail height"}
	workers     = configVar[int]{"workers", 0, "Render workers (0: size to host)"}
	dpi         = configVar[int]{"dpi", 150, "DPI for PDF pages"}

	projectPath = configVar[string]{"project", "", "Project YAML with slides to import"}
	inputPath   = configVar[string]{"input", "", "Image file, directory of images or PDF to import"}
	savePath    = configVar[string]{"save", "", "Write the working sequence to this project YAML"}

	logLevel  = configVar[string]{"log-level", "info", "Logging level"}
	logFormat = configVar[string]{"log-format", "console", "Log format: console, json"}
	logPath   = configVar[string]{"log-path", "", "Also write JSON logs to this file"}
)

// Load reads configuration from args, SLIDEREEL_* environment variables and
// an optional YAML file given by --config, in that order of precedence.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("slidereel", pflag.ContinueOnError)
	fs.String(configFile.flagKey, configFile.defaultValue, configFile.usage)
	fs.Int(maxImages.flagKey, maxImages.defaultValue, maxImages.usage)
	fs.Duration(tickPeriod.flagKey, tickPeriod.defaultValue, tickPeriod.usage)
	fs.Duration(fadeWindow.flagKey, fadeWindow.defaultValue, fadeWindow.usage)
	fs.Bool(preview.flagKey, preview.defaultValue, preview.usage)
	fs.Bool(replay.flagKey, replay.defaultValue, replay.usage)
	fs.String(title.flagKey, title.defaultValue, title.usage)
	fs.Int(exportStep.flagKey, exportStep.defaultValue, exportStep.usage)
	fs.Duration(exportStepDelay.flagKey, exportStepDelay.defaultValue, exportStepDelay.usage)
	fs.Int(exportRetries.flagKey, exportRetries.defaultValue, exportRetries.usage)
	fs.String(framesOutput.flagKey, framesOutput.defaultValue, framesOutput.usage)
	fs.String(preset.flagKey, preset.defaultValue, preset.usage)
	fs.Int(width.flagKey, width.defaultValue, width.usage)
	fs.Int(height.flagKey, height.defaultValue, height.usage)
	fs.Int(thumbWidth.flagKey, thumbWidth.defaultValue, thumbWidth.usage)
	fs.Int(thumbHeight.flagKey, thumbHeight.defaultValue, thumbHeight.usage)
	fs.Int(workers.flagKey, workers.defaultValue, workers.usage)
	fs.Int(dpi.flagKey, dpi.defaultValue, dpi.usage)
	fs.String(projectPath.flagKey, projectPath.defaultValue, projectPath.usage)
	fs.String(inputPath.flagKey, inputPath.defaultValue, inputPath.usage)
	fs.String(savePath.flagKey, savePath.defaultValue, savePath.usage)
	fs.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	fs.String(logFormat.flagKey, logFormat.defaultValue, logFormat.usage)
	fs.String(logPath.flagKey, logPath.defaultValue, logPath.usage)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(configFile.flagKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		MaxImages:       v.GetInt(maxImages.flagKey),
		TickPeriod:      v.GetDuration(tickPeriod.flagKey),
		FadeWindow:      v.GetDuration(fadeWindow.flagKey),
		Preview:         v.GetBool(preview.flagKey),
		Replay:          v.GetBool(replay.flagKey),
		Title:           v.GetString(title.flagKey),
		ExportStep:      v.GetInt(exportStep.flagKey),
		ExportStepDelay: v.GetDuration(exportStepDelay.flagKey),
		ExportRetries:   v.GetInt(exportRetries.flagKey),
		FramesOutput:    v.GetString(framesOutput.flagKey),
		Preset:          v.GetString(preset.flagKey),
		Width:           v.GetInt(width.flagKey),
		Height:          v.GetInt(height.flagKey),
		ThumbWidth:      v.GetInt(thumbWidth.flagKey),
		ThumbHeight:     v.GetInt(thumbHeight.flagKey),
		Workers:         v.GetInt(workers.flagKey),
		DPI:             v.GetInt(dpi.flagKey),
		ProjectPath:     v.GetString(projectPath.flagKey),
		InputPath:       v.GetString(inputPath.flagKey),
		SavePath:        v.GetString(savePath.flagKey),
		LogLevel:        v.GetString(logLevel.flagKey),
		LogFormat:       v.GetString(logFormat.flagKey),
		LogPath:         v.GetString(logPath.flagKey),
	}
	cfg.applyPreset()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyPreset() {
	switch c.Preset {
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
