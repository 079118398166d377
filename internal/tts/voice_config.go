package tts

import "fmt"

// Voice identifies a TTS voice preset
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceAsh     Voice = "ash"
	VoiceBallad  Voice = "ballad"
	VoiceCoral   Voice = "coral"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceNova    Voice = "nova"
	VoiceOnyx    Voice = "onyx"
	VoiceSage    Voice = "sage"
	VoiceShimmer Voice = "shimmer"
)

// Model identifies a TTS model
type Model string

const (
	ModelStandard    Model = "tts-1"
	ModelHighQuality Model = "tts-1-hd"
	ModelGPT4oMini   Model = "gpt-4o-mini-tts"
)

// Format identifies the audio container for generated segments
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

var validVoices = map[Voice]bool{
	VoiceAlloy: true, VoiceAsh: true, VoiceBallad: true, VoiceCoral: true,
	VoiceEcho: true, VoiceFable: true, VoiceNova: true, VoiceOnyx: true,
	VoiceSage: true, VoiceShimmer: true,
}

var validModels = map[Model]bool{
	ModelStandard: true, ModelHighQuality: true, ModelGPT4oMini: true,
}

var validFormats = map[Format]bool{
	FormatMP3: true, FormatWAV: true,
}

// VoiceConfig holds the validated audio settings for one conversion run
type VoiceConfig struct {
	Voice  Voice
	Model  Model
	Speed  float64 // Playback speed, 0.5 to 2.0
	Format Format
}

// DefaultVoiceConfig returns the default voice configuration
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		Voice:  VoiceShimmer,
		Model:  ModelStandard,
		Speed:  1.0,
		Format: FormatMP3,
	}
}

// NewVoiceConfig builds a VoiceConfig from string settings, validating once
// at construction so invalid values fail before any work starts
func NewVoiceConfig(voice, model string, speed float64, format string) (VoiceConfig, error) {
	cfg := VoiceConfig{
		Voice:  Voice(voice),
		Model:  Model(model),
		Speed:  speed,
		Format: Format(format),
	}
	if err := cfg.Validate(); err != nil {
		return VoiceConfig{}, err
	}
	return cfg, nil
}

// Validate checks all fields against the recognized value sets
func (c VoiceConfig) Validate() error {
	if !validVoices[c.Voice] {
		return fmt.Errorf("unrecognized voice %q", c.Voice)
	}
	if !validModels[c.Model] {
		return fmt.Errorf("unrecognized model %q", c.Model)
	}
	if c.Speed < 0.5 || c.Speed > 2.0 {
		return fmt.Errorf("speed %.2f out of range [0.5, 2.0]", c.Speed)
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("unrecognized audio format %q", c.Format)
	}
	return nil
}

// Ext returns the file extension for segments in this format
func (c VoiceConfig) Ext() string {
	return string(c.Format)
}
