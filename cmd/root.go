package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "resume-matcher"
	envPrefix = "RESUME_MATCHER"
)

type Config struct {
	Listen          string          `mapstructure:"listen" json:"listen"`
	MaxUploadSize   int64           `mapstructure:"max-upload-size" json:"max-upload-size"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown-timeout" json:"shutdown-timeout"`
	CORS            CORSConfig      `mapstructure:"cors" json:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate-limit" json:"rate-limit"`
	Log             LogConfig       `mapstructure:"log" json:"log"`
	PDF             PDFConfig       `mapstructure:"pdf" json:"pdf"`
	Engine          EngineConfig    `mapstructure:"engine" json:"engine"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed-origins" json:"allowed-origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests-per-second" json:"requests-per-second"`
	Burst             int     `mapstructure:"burst" json:"burst"`
}

type LogConfig struct {
	MaxLength int `mapstructure:"max-length" json:"max-length"`
}

type PDFConfig struct {
	Backend string `mapstructure:"backend" json:"backend"`
}

type EngineConfig struct {
	Provider  string       `mapstructure:"provider" json:"provider"`
	Dimension int          `mapstructure:"dimension" json:"dimension"`
	Gemini    GeminiConfig `mapstructure:"gemini" json:"gemini"`
	OpenAI    OpenAIConfig `mapstructure:"openai" json:"openai"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file" json:"api-key-file"`
	APIKey     string `mapstructure:"api-key" json:"-"`
	Model      string `mapstructure:"model" json:"model"`
	MaxRetries int    `mapstructure:"max-retries" json:"max-retries"`
}

// OpenAIConfig is shared by the openai and ollama providers.
type OpenAIConfig struct {
	APIKeyFile string        `mapstructure:"api-key-file" json:"api-key-file"`
	APIKey     string        `mapstructure:"api-key" json:"-"`
	BaseURL    string        `mapstructure:"base-url" json:"base-url"`
	Model      string        `mapstructure:"model" json:"model"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher scores how well a résumé matches a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("pdf-backend", "", "pdf text extractor: ledongthuc or pdfcpu")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("pdf.backend", rootCmd.PersistentFlags().Lookup("pdf-backend"))
}

// setDefaults registers every key so that AllSettings and env overrides see it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":5000")
	v.SetDefault("max-upload-size", 10<<20)
	v.SetDefault("shutdown-timeout", "10s")
	v.SetDefault("cors.allowed-origins", []string{"*"})
	v.SetDefault("rate-limit.requests-per-second", 0)
	v.SetDefault("rate-limit.burst", 0)
	v.SetDefault("log.max-length", 200)
	v.SetDefault("pdf.backend", "ledongthuc")
	v.SetDefault("engine.provider", "local")
	v.SetDefault("engine.dimension", 512)
	v.SetDefault("engine.gemini.api-key-file", "")
	v.SetDefault("engine.gemini.api-key", "")
	v.SetDefault("engine.gemini.model", "gemini-embedding-001")
	v.SetDefault("engine.gemini.max-retries", 3)
	v.SetDefault("engine.openai.api-key-file", "")
	v.SetDefault("engine.openai.api-key", "")
	v.SetDefault("engine.openai.base-url", "")
	v.SetDefault("engine.openai.model", "text-embedding-3-small")
	v.SetDefault("engine.openai.timeout", "30s")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was named explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.AllSettings())
}

func decodeConfig(settings map[string]any) (*Config, error) {
	config := &Config{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return config, nil
}
