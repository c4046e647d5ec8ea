package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/handiism/nextory-downloader/internal/audio"
	"github.com/handiism/nextory-downloader/internal/http"
	ioutils "github.com/handiism/nextory-downloader/internal/io"
	"github.com/handiism/nextory-downloader/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. NEXTORY_DOWNLOADS_PATH.
const EnvPrefix = "NEXTORY"

const appDir = "nextory-downloader"

// Settings holds all configuration options.
type Settings struct {
	// Account
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Paths
	DownloadsPath string `json:"downloads_path"`
	TokenPath     string `json:"token_path"`
	HistoryPath   string `json:"history_path"`

	// Download settings
	MaxConcurrentDownloads int  `json:"max_concurrent_downloads"`
	MarkCompleted          bool `json:"mark_completed"`

	// Sweeps
	DownloadActive      bool     `json:"download_active"`
	DownloadInactive    bool     `json:"download_inactive"`
	DownloadNewReleases bool     `json:"download_new_releases"`
	Categories          []string `json:"categories"`
	Views               []string `json:"views"`
	Sort                string   `json:"sort"`

	// Cover art settings
	SaveCoverArtInTags    bool `json:"save_cover_art_in_tags"`
	CoverArtInTagsResize  bool `json:"cover_art_in_tags_resize"`
	CoverArtInTagsMaxSize int  `json:"cover_art_in_tags_max_size"`
	ConvertCoverArtToJPG  bool `json:"convert_cover_art_to_jpg"`

	// Tag settings
	ModifyTags bool `json:"modify_tags"`

	// Proxy settings
	ProxyType    string `json:"proxy_type"` // none, system, manual, socks5
	ProxyAddress string `json:"proxy_address"`
	ProxyPort    int    `json:"proxy_port"`

	// API
	APIBaseURL string `json:"api_base_url"`
}

// Dir returns the per-user configuration directory.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base, _ = os.UserHomeDir()
	}
	return filepath.Join(base, appDir)
}

// DefaultPath returns the default settings file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "settings.json")
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		DownloadsPath: filepath.Join(homeDir, "Books", "Nextory"),
		TokenPath:     filepath.Join(Dir(), "token"),
		HistoryPath:   filepath.Join(Dir(), "history.db"),

		MaxConcurrentDownloads: 1,
		MarkCompleted:          true,

		DownloadActive:      true,
		DownloadInactive:    true,
		DownloadNewReleases: false,
		Categories:          []string{},
		Views:               []string{},
		Sort:                model.SortRelevance.String(),

		SaveCoverArtInTags:    true,
		CoverArtInTagsResize:  true,
		CoverArtInTagsMaxSize: 1000,
		ConvertCoverArtToJPG:  true,

		ModifyTags: true,

		ProxyType: http.ProxySystem,

		APIBaseURL: http.DefaultBaseURL,
	}
}

// Load reads settings from a JSON file, then applies NEXTORY_* environment
// overrides. A missing file yields the defaults plus overrides.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	defaults, err := toMap(DefaultSettings())
	if err != nil {
		return nil, err
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read settings %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	s := &Settings{
		Username: v.GetString("username"),
		Password: v.GetString("password"),

		DownloadsPath: v.GetString("downloads_path"),
		TokenPath:     v.GetString("token_path"),
		HistoryPath:   v.GetString("history_path"),

		MaxConcurrentDownloads: v.GetInt("max_concurrent_downloads"),
		MarkCompleted:          v.GetBool("mark_completed"),

		DownloadActive:      v.GetBool("download_active"),
		DownloadInactive:    v.GetBool("download_inactive"),
		DownloadNewReleases: v.GetBool("download_new_releases"),
		Categories:          splitList(v.GetStringSlice("categories")),
		Views:               splitList(v.GetStringSlice("views")),
		Sort:                v.GetString("sort"),

		SaveCoverArtInTags:    v.GetBool("save_cover_art_in_tags"),
		CoverArtInTagsResize:  v.GetBool("cover_art_in_tags_resize"),
		CoverArtInTagsMaxSize: v.GetInt("cover_art_in_tags_max_size"),
		ConvertCoverArtToJPG:  v.GetBool("convert_cover_art_to_jpg"),

		ModifyTags: v.GetBool("modify_tags"),

		ProxyType:    v.GetString("proxy_type"),
		ProxyAddress: v.GetString("proxy_address"),
		ProxyPort:    v.GetInt("proxy_port"),

		APIBaseURL: v.GetString("api_base_url"),
	}

	return s, nil
}

// Save writes settings to a JSON file. The password is never written.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	out := *s
	out.Password = ""

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate reports the first invalid setting.
func (s *Settings) Validate() error {
	if s.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("max_concurrent_downloads must be at least 1, got %d", s.MaxConcurrentDownloads)
	}
	if _, err := model.ParseSort(s.Sort); err != nil {
		return err
	}
	switch s.ProxyType {
	case "", http.ProxyNone, http.ProxySystem:
	case http.ProxyManual, http.ProxySOCKS5:
		if s.ProxyAddress == "" {
			return fmt.Errorf("proxy_type %q needs proxy_address", s.ProxyType)
		}
	default:
		return fmt.Errorf("unknown proxy_type %q", s.ProxyType)
	}
	return nil
}

// SortOrder returns the configured search sort, relevance if invalid.
func (s *Settings) SortOrder() model.Sort {
	sort, _ := model.ParseSort(s.Sort)
	return sort
}

// ProxyAddr joins the proxy address and port.
func (s *Settings) ProxyAddr() string {
	if s.ProxyPort == 0 {
		return s.ProxyAddress
	}
	return net.JoinHostPort(s.ProxyAddress, strconv.Itoa(s.ProxyPort))
}

// NewAPIClient builds an API client using the proxy and base URL settings.
func (s *Settings) NewAPIClient() (*http.Client, error) {
	hc, err := http.NewProxyHTTPClient(s.ProxyType, s.ProxyAddr())
	if err != nil {
		return nil, err
	}
	opts := []http.Option{http.WithHTTPClient(hc)}
	if s.APIBaseURL != "" {
		opts = append(opts, http.WithBaseURL(s.APIBaseURL))
	}
	return http.NewClient(opts...), nil
}

// ToTagConfig converts settings to an audio.TagConfig.
func (s *Settings) ToTagConfig() *audio.TagConfig {
	cfg := audio.DefaultTagConfig()
	cfg.ModifyTags = s.ModifyTags
	cfg.Cover = s.SaveCoverArtInTags
	return cfg
}

// ToCoverOptions converts settings to ioutils.CoverOptions.
func (s *Settings) ToCoverOptions() ioutils.CoverOptions {
	return ioutils.CoverOptions{
		Resize:        s.CoverArtInTagsResize,
		MaxSize:       s.CoverArtInTagsMaxSize,
		ConvertToJPEG: s.ConvertCoverArtToJPG,
	}
}

func toMap(s *Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	// omitempty drops these from the defaults, but they must stay bindable
	// to the environment.
	for _, key := range []string{"username", "password"} {
		if _, ok := out[key]; !ok {
			out[key] = ""
		}
	}
	return out, nil
}

// splitList also splits comma separated entries, as environment values
// arrive as a single string.
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
