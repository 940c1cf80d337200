package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/signaltone/internal/audio"
	"github.com/oszuidwest/signaltone/internal/tone"
	"github.com/oszuidwest/signaltone/internal/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "synth.toml", `
usb = [{ port = "1-1", tone = 440.0 }, { port = "2-1.4", tone = 660 }]
lid = { tone = 220.0 }

[[inputs]]
name = "Headphone"
tone = 330.0

[audio]
backend = "null"
sample_rate = 48000

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []tone.Key{
		tone.NewKey("1-1", 440),
		tone.NewKey("2-1.4", 660),
		tone.NewKey(tone.SignalLid, 220),
		tone.NewKey("Headphone", 330),
	}, cfg.Keys())
	assert.Equal(t, audio.Options{
		Backend:    audio.BackendNull,
		Device:     audio.DefaultDevice,
		SampleRate: 48000,
		BufferSize: DefaultBufferSize,
	}, cfg.AudioOptions())
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "synth.json", `{
  "usb": [{"port": "1-1", "tone": 440}],
  "audio": {"backend": "portaudio", "device": 0}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Lid)
	assert.Equal(t, 0, cfg.Audio.Device)
	assert.Equal(t, audio.BackendPortAudio, cfg.Audio.Backend)
	assert.Equal(t, DefaultSampleRate, cfg.Audio.SampleRate)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "synth.yaml", `
usb:
  - port: "3-2"
    tone: 523.25
lid:
  tone: 261.63
event_log: /tmp/events.jsonl
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Lid)
	assert.Equal(t, tone.NewKey(tone.SignalLid, 261.63), cfg.LidKey())
	assert.Equal(t, "/tmp/events.jsonl", cfg.EventLog)
	assert.Equal(t, DefaultBackend, cfg.Audio.Backend)
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "synth.toml", ""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Keys())
	assert.Equal(t, New(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		ext   string
		data  string
		field string
	}{
		{"bad port", ".toml", `usb = [{ port = "usb1", tone = 440.0 }]`, "usb[0].port"},
		{"missing port", ".toml", `usb = [{ tone = 440.0 }]`, "usb[0].port"},
		{"zero tone", ".toml", `lid = { tone = 0.0 }`, "lid.tone"},
		{"negative tone", ".json", `{"usb": [{"port": "1-1", "tone": -5}]}`, "usb[0].tone"},
		{"input without name", ".yaml", "inputs:\n  - tone: 300\n", "inputs[0].name"},
		{"unknown backend", ".toml", "[audio]\nbackend = \"alsa\"", "audio.backend"},
		{"low sample rate", ".toml", "[audio]\nsample_rate = 4000", "audio.sample_rate"},
		{"device below default", ".toml", "[audio]\ndevice = -2", "audio.device"},
		{"bad log level", ".toml", "[log]\nlevel = \"loud\"", "log.level"},
		{"above nyquist", ".toml", "lid = { tone = 9000.0 }\n[audio]\nsample_rate = 16000", "tone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.ext, []byte(tt.data))
			require.ErrorIs(t, err, ErrInvalid)

			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Errors))
			for _, e := range verr.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestParseRejectsSyntaxErrors(t *testing.T) {
	for ext, data := range map[string]string{
		".toml": "usb = [",
		".json": "{",
		".yaml": "usb: [",
		".ini":  "usb=1",
	} {
		_, err := Parse(ext, []byte(data))
		assert.ErrorIs(t, err, ErrInvalid, ext)
	}
}

func TestUSBPorts(t *testing.T) {
	cfg, err := Parse(".toml", []byte(`usb = [
  { port = "1-1", tone = 440.0 },
  { port = "1-1", tone = 880.0 },
  { port = "1-2", tone = 330.0 },
]`))
	require.NoError(t, err)

	ports := cfg.USBPorts()
	assert.Equal(t, []tone.Key{tone.NewKey("1-1", 440), tone.NewKey("1-1", 880)}, ports["1-1"])
	assert.Equal(t, []tone.Key{tone.NewKey("1-2", 330)}, ports["1-2"])
	assert.NotContains(t, ports, "1-3")
}

func TestLogHandler(t *testing.T) {
	text := LogConfig{Level: "warn", Format: "text"}
	assert.IsType(t, &slog.TextHandler{}, text.Handler(os.Stderr))
	assert.Equal(t, slog.LevelWarn, text.SlogLevel())

	js := LogConfig{Level: "error", Format: "json"}
	assert.IsType(t, &slog.JSONHandler{}, js.Handler(os.Stderr))
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "nonsense"}.SlogLevel())
}
