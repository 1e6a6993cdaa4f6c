package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	VAD     VADConfig     `yaml:"vad"`
	Mic     MicConfig     `yaml:"mic"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains control-plane HTTP server configuration.
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// VADConfig contains the core VAD pipeline parameters.
type VADConfig struct {
	Rate                  int     `yaml:"rate"`
	OutDir                string  `yaml:"out_dir"`
	ModelPath             string  `yaml:"model_path"`
	SpeechThreshold       float64 `yaml:"speech_threshold"`
	SilenceThreshold      float64 `yaml:"silence_threshold"`
	RequiredSpeechFrames  int     `yaml:"required_speech_frames"`
	RequiredSilenceFrames int     `yaml:"required_silence_frames"`
}

// MicConfig describes how to launch the external mic-capture child process.
// The process is expected to emit raw little-endian signed 16-bit mono PCM
// at VADConfig.Rate on stdout.
type MicConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in default configuration, matching the defaults
// named above.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:    5173,
			Address: "0.0.0.0",
		},
		VAD: VADConfig{
			Rate:                  16000,
			OutDir:                "./segments",
			ModelPath:             "./models/silero_vad.onnx",
			SpeechThreshold:       0.35,
			SilenceThreshold:      0.05,
			RequiredSpeechFrames:  2,
			RequiredSilenceFrames: 20,
		},
		Mic: MicConfig{
			Command: "arecord",
			Args:    []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file, falling back to defaults
// for any section the file omits.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("default config invalid: %w", err)
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}
	if err := c.Mic.Validate(); err != nil {
		return fmt.Errorf("mic config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates HTTP configuration.
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}
	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	return nil
}

// Validate validates VAD configuration against its invariants.
func (v *VADConfig) Validate() error {
	if v.Rate != 16000 {
		return fmt.Errorf("rate must be 16000 Hz, got %d", v.Rate)
	}
	if v.OutDir == "" {
		return fmt.Errorf("out_dir cannot be empty")
	}
	if v.ModelPath == "" {
		return fmt.Errorf("model_path cannot be empty")
	}
	if v.SpeechThreshold < 0 || v.SpeechThreshold > 1 {
		return fmt.Errorf("speech_threshold must be between 0 and 1, got %f", v.SpeechThreshold)
	}
	if v.SilenceThreshold < 0 || v.SilenceThreshold > 1 {
		return fmt.Errorf("silence_threshold must be between 0 and 1, got %f", v.SilenceThreshold)
	}
	if v.SilenceThreshold >= v.SpeechThreshold {
		return fmt.Errorf("silence_threshold (%f) must be less than speech_threshold (%f)", v.SilenceThreshold, v.SpeechThreshold)
	}
	if v.RequiredSpeechFrames < 1 {
		return fmt.Errorf("required_speech_frames must be at least 1, got %d", v.RequiredSpeechFrames)
	}
	if v.RequiredSilenceFrames < 1 {
		return fmt.Errorf("required_silence_frames must be at least 1, got %d", v.RequiredSilenceFrames)
	}
	return nil
}

// Validate validates mic configuration.
func (m *MicConfig) Validate() error {
	if m.Command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}
	return nil
}

// Options is a partial-update delta for VADConfig: every field is a pointer
// so that Update and PATCH /api/v1/vad/options can
// distinguish "not supplied" from "supplied as zero value", applying only
// the fields that are present.
type Options struct {
	Rate                  *int     `json:"rate,omitempty"`
	OutDir                *string  `json:"outDir,omitempty"`
	ModelPath             *string  `json:"modelPath,omitempty"`
	SpeechThreshold       *float64 `json:"speechThreshold,omitempty"`
	SilenceThreshold      *float64 `json:"silenceThreshold,omitempty"`
	RequiredSpeechFrames  *int     `json:"requiredSpeechFrames,omitempty"`
	RequiredSilenceFrames *int     `json:"requiredSilenceFrames,omitempty"`
}

// Apply merges the present fields of o into v, returning the merged result.
// v is left unmodified; the caller validates the result before committing it.
func (v VADConfig) Apply(o Options) VADConfig {
	merged := v
	if o.Rate != nil {
		merged.Rate = *o.Rate
	}
	if o.OutDir != nil {
		merged.OutDir = *o.OutDir
	}
	if o.ModelPath != nil {
		merged.ModelPath = *o.ModelPath
	}
	if o.SpeechThreshold != nil {
		merged.SpeechThreshold = *o.SpeechThreshold
	}
	if o.SilenceThreshold != nil {
		merged.SilenceThreshold = *o.SilenceThreshold
	}
	if o.RequiredSpeechFrames != nil {
		merged.RequiredSpeechFrames = *o.RequiredSpeechFrames
	}
	if o.RequiredSilenceFrames != nil {
		merged.RequiredSilenceFrames = *o.RequiredSilenceFrames
	}
	return merged
}

// ToOptions converts a full VADConfig into an Options with every field set,
// used to serve GET /api/v1/vad/options (the controller's current config,
// including any applied updates, in options-shape).
func (v VADConfig) ToOptions() Options {
	rate, speech, silence := v.Rate, v.SpeechThreshold, v.SilenceThreshold
	reqSpeech, reqSilence := v.RequiredSpeechFrames, v.RequiredSilenceFrames
	outDir, modelPath := v.OutDir, v.ModelPath
	return Options{
		Rate:                  &rate,
		OutDir:                &outDir,
		ModelPath:             &modelPath,
		SpeechThreshold:       &speech,
		SilenceThreshold:      &silence,
		RequiredSpeechFrames:  &reqSpeech,
		RequiredSilenceFrames: &reqSilence,
	}
}

// GetMicTimeout returns how long the controller waits for the mic child
// process to exit after signaling termination before giving up on a clean
// stop.
func (m *MicConfig) GetMicTimeout() time.Duration {
	return 5 * time.Second
}
