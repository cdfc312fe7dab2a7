package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type WorkspaceConfig struct {
	DataDir string `yaml:"data_dir"`
	WorkDir string `yaml:"work_dir"`
}

type CharactersConfig struct {
	Path           string `yaml:"path"`
	DefaultSpeaker string `yaml:"default_speaker"`
}

// VoiceConfig selects the TTS backend for one speaker.
type VoiceConfig struct {
	Provider string  `yaml:"provider"` // mock, gcloud, elevenlabs
	VoiceID  string  `yaml:"voice_id"`
	Speed    float64 `yaml:"speed"`
	Pitch    float64 `yaml:"pitch"`
}

type AudioConfig struct {
	TargetLUFS     float64 `yaml:"target_lufs"`
	PeakDB         float64 `yaml:"peak_db"`
	LoudnessRange  float64 `yaml:"loudness_range"`
	BGMPath        string  `yaml:"bgm_path"`
	BGMVolumeDB    float64 `yaml:"bgm_volume_db"`
	IntroSilenceMS int     `yaml:"intro_silence_ms"`
	OutroSilenceMS int     `yaml:"outro_silence_ms"`
	SampleRate     int     `yaml:"sample_rate"`
}

type VideoConfig struct {
	Width         int      `yaml:"width"`
	Height        int      `yaml:"height"`
	CRF           int      `yaml:"crf"`
	SegmentPreset string   `yaml:"segment_preset"`
	FinalPreset   string   `yaml:"final_preset"`
	AudioBitrate  string   `yaml:"audio_bitrate"`
	FontPaths     []string `yaml:"font_paths"`
	AvatarCache   string   `yaml:"avatar_cache"` // skip_existing, regenerate
	FFmpegCommand string   `yaml:"ffmpeg_command"`
	FFmpegTimeout int      `yaml:"ffmpeg_timeout_ms"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver"` // local, s3
	LocalBase     string `yaml:"local_base"`
	PublicBaseURL string `yaml:"public_base_url"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Prefix      string `yaml:"s3_prefix"`
	S3Endpoint    string `yaml:"s3_endpoint"`
	S3Region      string `yaml:"s3_region"`
}

type FeedConfig struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	Author      string `yaml:"author"`
	ImageURL    string `yaml:"image_url"`
}

type StoreConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEpisodes   int    `yaml:"max_episodes"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

type Config struct {
	PipelineName string                 `yaml:"pipeline_name"`
	Environment  string                 `yaml:"environment"`
	Workspace    WorkspaceConfig        `yaml:"workspace"`
	Characters   CharactersConfig       `yaml:"characters"`
	Voices       map[string]VoiceConfig `yaml:"voices"`
	Audio        AudioConfig            `yaml:"audio"`
	Video        VideoConfig            `yaml:"video"`
	Storage      StorageConfig          `yaml:"storage"`
	Feed         FeedConfig             `yaml:"feed"`
	Store        StoreConfig            `yaml:"store"`
	Bus          BusConfig              `yaml:"bus"`
	Telemetry    TelemetryConfig        `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		PipelineName: "debatecast",
		Environment:  "development",
		Workspace: WorkspaceConfig{
			DataDir: "./data",
			WorkDir: "./data/work",
		},
		Characters: CharactersConfig{
			Path:           "./configs/characters.yaml",
			DefaultSpeaker: "chatgpt",
		},
		Voices: map[string]VoiceConfig{},
		Audio: AudioConfig{
			TargetLUFS:     -16.0,
			PeakDB:         -1.0,
			LoudnessRange:  11.0,
			BGMVolumeDB:    -15.0,
			IntroSilenceMS: 500,
			OutroSilenceMS: 1000,
			SampleRate:     44100,
		},
		Video: VideoConfig{
			Width:         1920,
			Height:        1080,
			CRF:           23,
			SegmentPreset: "ultrafast",
			FinalPreset:   "medium",
			AudioBitrate:  "192k",
			FontPaths: []string{
				"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			},
			AvatarCache:   "skip_existing",
			FFmpegCommand: "ffmpeg",
		},
		Storage: StorageConfig{
			Driver:        "local",
			LocalBase:     "./data/episodes",
			PublicBaseURL: "http://localhost:8080/podcast",
			S3Region:      "auto",
		},
		Feed: FeedConfig{
			Title:       "Synthetic Newsroom",
			Link:        "https://example.com",
			Description: "AI daily debate podcast",
			Language:    "ja",
			Author:      "Synthetic Newsroom AI",
		},
		Store: StoreConfig{
			Path: "./data/debatecast.db",
		},
		Bus: BusConfig{
			Enabled:        false,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			SubjectPrefix:  "debatecast",
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.PipelineName, "DEBATECAST_PIPELINE_NAME")
	overrideString(&cfg.Environment, "DEBATECAST_ENVIRONMENT")
	overrideString(&cfg.Workspace.DataDir, "DEBATECAST_DATA_DIR")
	overrideString(&cfg.Workspace.WorkDir, "DEBATECAST_WORK_DIR")
	overrideString(&cfg.Characters.Path, "DEBATECAST_CHARACTERS_PATH")
	overrideString(&cfg.Characters.DefaultSpeaker, "DEBATECAST_DEFAULT_SPEAKER")
	overrideFloat(&cfg.Audio.TargetLUFS, "DEBATECAST_AUDIO_TARGET_LUFS")
	overrideFloat(&cfg.Audio.PeakDB, "DEBATECAST_AUDIO_PEAK_DB")
	overrideString(&cfg.Audio.BGMPath, "DEBATECAST_AUDIO_BGM_PATH")
	overrideFloat(&cfg.Audio.BGMVolumeDB, "DEBATECAST_AUDIO_BGM_VOLUME_DB")
	overrideInt(&cfg.Video.Width, "DEBATECAST_VIDEO_WIDTH")
	overrideInt(&cfg.Video.Height, "DEBATECAST_VIDEO_HEIGHT")
	overrideInt(&cfg.Video.CRF, "DEBATECAST_VIDEO_CRF")
	overrideString(&cfg.Video.AvatarCache, "DEBATECAST_VIDEO_AVATAR_CACHE")
	overrideString(&cfg.Video.FFmpegCommand, "DEBATECAST_FFMPEG_COMMAND")
	overrideInt(&cfg.Video.FFmpegTimeout, "DEBATECAST_FFMPEG_TIMEOUT_MS")
	overrideString(&cfg.Storage.Driver, "DEBATECAST_STORAGE_DRIVER")
	overrideString(&cfg.Storage.LocalBase, "DEBATECAST_STORAGE_LOCAL_BASE")
	overrideString(&cfg.Storage.PublicBaseURL, "DEBATECAST_STORAGE_PUBLIC_BASE_URL")
	overrideString(&cfg.Storage.S3Bucket, "DEBATECAST_STORAGE_S3_BUCKET")
	overrideString(&cfg.Storage.S3Prefix, "DEBATECAST_STORAGE_S3_PREFIX")
	overrideString(&cfg.Storage.S3Endpoint, "DEBATECAST_STORAGE_S3_ENDPOINT")
	overrideString(&cfg.Storage.S3Region, "DEBATECAST_STORAGE_S3_REGION")
	overrideString(&cfg.Store.Path, "DEBATECAST_STORE_PATH")
	overrideInt(&cfg.Store.RetentionDays, "DEBATECAST_STORE_RETENTION_DAYS")
	overrideInt(&cfg.Store.MaxEpisodes, "DEBATECAST_STORE_MAX_EPISODES")
	overrideBool(&cfg.Bus.Enabled, "DEBATECAST_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "DEBATECAST_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "DEBATECAST_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "DEBATECAST_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "DEBATECAST_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "DEBATECAST_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "DEBATECAST_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.SubjectPrefix, "DEBATECAST_BUS_SUBJECT_PREFIX")
	overrideString(&cfg.Telemetry.LogLevel, "DEBATECAST_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "DEBATECAST_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "DEBATECAST_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "DEBATECAST_TELEMETRY_PROMETHEUS_BIND")
}

func validate(cfg Config) error {
	switch cfg.Video.AvatarCache {
	case "skip_existing", "regenerate":
	default:
		return fmt.Errorf("invalid video.avatar_cache %q (want skip_existing or regenerate)", cfg.Video.AvatarCache)
	}
	switch cfg.Storage.Driver {
	case "local":
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket required when storage.driver is s3")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q (want local or s3)", cfg.Storage.Driver)
	}
	for speaker, voice := range cfg.Voices {
		switch voice.Provider {
		case "", "mock", "gcloud", "elevenlabs":
		default:
			return fmt.Errorf("invalid voices.%s.provider %q", speaker, voice.Provider)
		}
	}
	if cfg.Video.Width <= 0 || cfg.Video.Height <= 0 {
		return fmt.Errorf("invalid video resolution %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if strings.TrimSpace(cfg.Video.FFmpegCommand) == "" {
		return fmt.Errorf("video.ffmpeg_command must not be empty")
	}
	if cfg.Bus.Enabled && len(cfg.Bus.Servers) == 0 {
		return fmt.Errorf("bus.servers required when bus.enabled is true")
	}
	return nil
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}
