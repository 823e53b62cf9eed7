package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/troupehq/troupe/internal/store"
)

const (
	DefaultHistoryLimit = 100
	DefaultTemperature  = 0.7
	DefaultPresetName   = "default"
	CommentPrefix       = "//"
)

// Settings is the runtime configuration decoded from the store's config
// rows. Every pipeline pass reloads it, so edits through the admin API take
// effect on the next message.
type Settings struct {
	DefaultCharacter string `validate:"required"`
	BlacklistMode    bool
	HistoryLimit     int `validate:"gte=1,lte=500"`
	PresetName       string

	AIEndpoint  string `validate:"required,url"`
	AIKey       string
	Model       string  `validate:"required"`
	Temperature float64 `validate:"gte=0,lte=2"`
	UsePrefill  bool

	MultimodalEnabled  bool
	MultimodalEndpoint string
	MultimodalKey      string
	MultimodalModel    string

	// DMList names the users permitted to talk to the system in DMs.
	// Empty means DMs are open.
	DMList []string
}

// Generation is the subset handed to the model client.
type Generation struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
}

func (s Settings) Generation() Generation {
	return Generation{
		Endpoint:    s.AIEndpoint,
		APIKey:      s.AIKey,
		Model:       s.Model,
		Temperature: s.Temperature,
	}
}

func (s Settings) MultimodalGeneration() Generation {
	return Generation{
		Endpoint: s.MultimodalEndpoint,
		APIKey:   s.MultimodalKey,
		Model:    s.MultimodalModel,
	}
}

// DMAllowed reports whether a user may use the DM path.
func (s Settings) DMAllowed(userName string) bool {
	if len(s.DMList) == 0 {
		return true
	}
	for _, name := range s.DMList {
		if name == userName {
			return true
		}
	}
	return false
}

type Service struct {
	store    store.Store
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(log *slog.Logger, st store.Store) *Service {
	return &Service{
		store:    st,
		validate: validator.New(),
		logger:   log.With(slog.String("service", "settings")),
	}
}

// Load reads all config rows and decodes them into validated Settings.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	rows, err := s.store.ListConfigs(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	settings := normalize(rows)
	if err := s.validate.Struct(settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func normalize(rows map[string]string) Settings {
	settings := Settings{
		DefaultCharacter: strings.TrimSpace(rows["default_character"]),
		BlacklistMode:    parseBool(rows["blacklist_mode"]),
		HistoryLimit:     parseInt(rows["history_limit"], DefaultHistoryLimit),
		PresetName:       strings.TrimSpace(rows["preset"]),
		AIEndpoint:       strings.TrimSpace(rows["ai_endpoint"]),
		AIKey:            strings.TrimSpace(rows["ai_key"]),
		Model:            strings.TrimSpace(rows["base_llm"]),
		Temperature:      parseFloat(rows["temperature"], DefaultTemperature),
		UsePrefill:       parseBool(rows["use_prefill"]),

		MultimodalEnabled:  parseBool(rows["multimodal_enable"]),
		MultimodalEndpoint: strings.TrimSpace(rows["multimodal_ai_endpoint"]),
		MultimodalKey:      strings.TrimSpace(rows["multimodal_ai_api"]),
		MultimodalModel:    strings.TrimSpace(rows["multimodal_ai_model"]),

		DMList: parseList(rows["dm_list"]),
	}
	if settings.HistoryLimit <= 0 {
		settings.HistoryLimit = DefaultHistoryLimit
	}
	if settings.PresetName == "" {
		settings.PresetName = DefaultPresetName
	}
	return settings
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseFloat(raw string, fallback float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return value
}

func parseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
