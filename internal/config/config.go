// Package config provides daemon configuration loading and validation.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/oszuidwest/signaltone/internal/audio"
	"github.com/oszuidwest/signaltone/internal/tone"
	"github.com/oszuidwest/signaltone/internal/types"
	"github.com/oszuidwest/signaltone/internal/util"
)

// DefaultFileName is the configuration file looked up next to the binary.
const DefaultFileName = "synth.toml"

// Configuration defaults are used when values are not specified.
const (
	DefaultBackend    = audio.BackendOto
	DefaultDevice     = audio.DefaultDevice
	DefaultSampleRate = 44100
	DefaultBufferSize = 1024
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// ErrInvalid is returned when the configuration cannot be read, parsed or
// validated.
var ErrInvalid = errors.New("invalid configuration")

// usbPortPattern matches kernel USB port paths such as "1-1" or "3-2.4.1".
var usbPortPattern = regexp.MustCompile(`^\d+-\d+(\.\d+)*$`)

// USBTone binds a USB port to a tone frequency.
type USBTone struct {
	Port string  `toml:"port" json:"port" yaml:"port" validate:"required,usbport"` // Kernel port path, e.g. "1-1"
	Tone float64 `toml:"tone" json:"tone" yaml:"tone" validate:"gt=0,lte=20000"`  // Frequency in Hz
}

// LidTone binds the lid switch to a tone frequency.
type LidTone struct {
	Tone float64 `toml:"tone" json:"tone" yaml:"tone" validate:"gt=0,lte=20000"`
}

// InputTone binds any input device, matched by name substring, to a tone.
type InputTone struct {
	Name string  `toml:"name" json:"name" yaml:"name" validate:"required,max=256"`
	Tone float64 `toml:"tone" json:"tone" yaml:"tone" validate:"gt=0,lte=20000"`
}

// Key returns the tone key of the input.
func (i InputTone) Key() tone.Key {
	return tone.NewKey(i.Name, i.Tone)
}

// AudioConfig holds audio output settings.
type AudioConfig struct {
	Backend    string `toml:"backend" json:"backend" yaml:"backend" validate:"oneof=oto portaudio null"`
	Device     int    `toml:"device" json:"device" yaml:"device" validate:"gte=-1"`
	SampleRate int    `toml:"sample_rate" json:"sample_rate" yaml:"sample_rate" validate:"gte=8000,lte=192000"`
	BufferSize int    `toml:"buffer_size" json:"buffer_size" yaml:"buffer_size" validate:"gte=64,lte=16384"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" json:"format" yaml:"format" validate:"oneof=text json"`
}

// Config holds all daemon configuration. It is loaded once at startup and
// shared read-only afterwards.
type Config struct {
	USB      []USBTone   `toml:"usb" json:"usb" yaml:"usb" validate:"dive"`
	Lid      *LidTone    `toml:"lid" json:"lid" yaml:"lid"`
	Inputs   []InputTone `toml:"inputs" json:"inputs" yaml:"inputs" validate:"dive"`
	Audio    AudioConfig `toml:"audio" json:"audio" yaml:"audio"`
	Log      LogConfig   `toml:"log" json:"log" yaml:"log"`
	EventLog string      `toml:"event_log" json:"event_log" yaml:"event_log" validate:"omitempty,max=4096"`
}

// validate is the shared validator instance for configuration validation.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use file key names in error messages instead of struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	if err := validate.RegisterValidation("usbport", func(fl validator.FieldLevel) bool {
		return usbPortPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// DefaultPath returns DefaultFileName in the directory of the running binary.
func DefaultPath() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", util.WrapError("get executable path", err)
	}
	return filepath.Join(filepath.Dir(execPath), DefaultFileName), nil
}

// New returns a Config holding the defaults. Files are decoded on top of it,
// so absent keys keep their default.
func New() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:    DefaultBackend,
			Device:     DefaultDevice,
			SampleRate: DefaultSampleRate,
			BufferSize: DefaultBufferSize,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads, defaults and validates the configuration at path. The format is
// chosen by extension: .toml (or none), .json, .yaml or .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, util.WrapError("read config", err))
	}

	cfg, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext, then applies defaults and
// validates the result.
func Parse(ext string, data []byte) (*Config, error) {
	cfg := New()
	if err := decode(strings.ToLower(ext), data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, util.WrapError("parse config", err))
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

func decode(ext string, data []byte, cfg *Config) error {
	switch ext {
	case ".toml", "":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		for _, key := range md.Undecoded() {
			slog.Warn("ignoring unknown config key", "key", key.String())
		}
		return nil
	case ".json":
		return json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.Audio.Backend == "" {
		c.Audio.Backend = DefaultBackend
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = DefaultSampleRate
	}
	if c.Audio.BufferSize == 0 {
		c.Audio.BufferSize = DefaultBufferSize
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	verr := types.NewValidationError()

	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		for _, e := range validationErrors {
			verr.Add(fieldPath(e), formatValidationMessage(e), e.Value())
		}
	}

	nyquist := float64(c.Audio.SampleRate) / 2
	for _, key := range c.Keys() {
		if key.Freq >= nyquist {
			verr.Add("tone", fmt.Sprintf("must be below half the sample rate (%g Hz)", nyquist), key.String())
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Keys returns the tone key of every configured signal, in file order.
func (c *Config) Keys() []tone.Key {
	keys := make([]tone.Key, 0, len(c.USB)+len(c.Inputs)+1)
	for _, u := range c.USB {
		keys = append(keys, tone.NewKey(u.Port, u.Tone))
	}
	if c.Lid != nil {
		keys = append(keys, c.LidKey())
	}
	for _, in := range c.Inputs {
		keys = append(keys, in.Key())
	}
	return keys
}

// LidKey returns the lid tone key. It must only be called when Lid is set.
func (c *Config) LidKey() tone.Key {
	return tone.NewKey(tone.SignalLid, c.Lid.Tone)
}

// USBPorts maps each configured port to its tone keys.
func (c *Config) USBPorts() map[string][]tone.Key {
	ports := make(map[string][]tone.Key, len(c.USB))
	for _, u := range c.USB {
		ports[u.Port] = append(ports[u.Port], tone.NewKey(u.Port, u.Tone))
	}
	return ports
}

// AudioOptions returns the output device options.
func (c *Config) AudioOptions() audio.Options {
	return audio.Options{
		Backend:    c.Audio.Backend,
		Device:     c.Audio.Device,
		SampleRate: c.Audio.SampleRate,
		BufferSize: c.Audio.BufferSize,
	}
}

// Handler returns a slog handler writing to w at the configured level and
// format.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel converts the configured level name.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(e validator.FieldError) string {
	_, path, ok := strings.Cut(e.Namespace(), ".")
	if !ok {
		return e.Field()
	}
	return path
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "usbport":
		return "must be a USB port path like 1-1 or 1-2.3"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
