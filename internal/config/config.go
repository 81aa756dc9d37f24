package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/player-portraits/internal/constants"
)

//go:embed countries.yaml
var countriesYAML []byte

type Config struct {
	Paths     PathsConfig
	Crop      CropConfig
	Detector  DetectorConfig
	HTTP      HTTPConfig
	Download  DownloadConfig
	Countries CountriesConfig
}

type PathsConfig struct {
	PlayerList string // JSON list of players (default player_list.json)
	PlayersDir string // downloaded portraits, also the crop input directory
	CroppedDir string // circular crops output directory
	FlagsDir   string // downloaded flag images
}

type CropConfig struct {
	Size          int     // side length of the output image in pixels
	MinConfidence float64 // detections below this score are ignored
}

type DetectorConfig struct {
	URL     string // face detection server, defaults to http://localhost:8000
	Timeout time.Duration
}

type HTTPConfig struct {
	UserAgent string
	Timeout   time.Duration // metadata API requests
}

type DownloadConfig struct {
	Timeout       time.Duration // single portrait download attempt
	Retries       int
	RetryInterval time.Duration
	PortraitDelay time.Duration
	FlagDelay     time.Duration
}

// CountriesConfig maps tennis (IOC) country codes to ISO 3166-1 alpha-2 codes.
type CountriesConfig struct {
	ISO map[string]string `yaml:"countries"`
}

// ISOCode returns the ISO code for a tennis country code.
// Unknown codes are returned unchanged.
func (c *CountriesConfig) ISOCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if iso, ok := c.ISO[code]; ok {
		return iso
	}
	return code
}

// envString reads an environment variable, falling back to defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in [0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a time.Duration ("10s", "800ms").
// Negative or unparsable values fall back to the default.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var countries CountriesConfig
	if err := yaml.Unmarshal(countriesYAML, &countries); err != nil {
		// Embedded file, so this only fails on a broken build
		panic("failed to unmarshal embedded countries.yaml: " + err.Error())
	}

	playersDir := envString("PLAYERS_DIR", "./tennis-scrollytelling/images/players")

	return &Config{
		Paths: PathsConfig{
			PlayerList: envString("PLAYER_LIST", "player_list.json"),
			PlayersDir: playersDir,
			CroppedDir: envString("CROPPED_DIR", filepath.Join(playersDir, "cropped")),
			FlagsDir:   envString("FLAGS_DIR", "./images/flags"),
		},
		Crop: CropConfig{
			Size:          envInt("CROP_SIZE", constants.DefaultCropSize),
			MinConfidence: envFloat("MIN_CONFIDENCE", constants.DefaultMinConfidence),
		},
		Detector: DetectorConfig{
			URL:     os.Getenv("FACE_DETECTOR_URL"),
			Timeout: envDuration("FACE_DETECTOR_TIMEOUT", constants.DefaultDetectorTimeout),
		},
		HTTP: HTTPConfig{
			UserAgent: envString("HTTP_USER_AGENT", constants.DefaultUserAgent),
			Timeout:   envDuration("HTTP_TIMEOUT", constants.DefaultAPITimeout),
		},
		Download: DownloadConfig{
			Timeout:       envDuration("DOWNLOAD_TIMEOUT", constants.DefaultDownloadTimeout),
			Retries:       envInt("DOWNLOAD_RETRIES", constants.DefaultDownloadRetries),
			RetryInterval: envDuration("DOWNLOAD_RETRY_INTERVAL", constants.DefaultRetryInterval),
			PortraitDelay: envDuration("PORTRAIT_DELAY", constants.DefaultPortraitDelay),
			FlagDelay:     envDuration("FLAG_DELAY", constants.DefaultFlagDelay),
		},
		Countries: countries,
	}
}
