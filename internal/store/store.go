package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/dimension"
)

// ErrNotFound is returned for every lookup miss. Absence is a defined
// value here; storage errors never reach the pipeline as panics.
var ErrNotFound = errors.New("store: not found")

// Preset is a named prompt template record.
type Preset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Template    string    `json:"template"`
}

// Store is the persistence capability consumed by the pipeline and the
// admin API.
type Store interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
	ListConfigs(ctx context.Context) (map[string]string, error)

	GetCharacter(ctx context.Context, name string) (character.Character, error)
	ListCharacters(ctx context.Context) ([]character.Character, error)
	CreateCharacter(ctx context.Context, c character.Character) error
	UpdateCharacter(ctx context.Context, c character.Character) error
	DeleteCharacter(ctx context.Context, name string) error

	GetDimension(ctx context.Context, channelID string) (dimension.Dimension, error)
	// EnsureDimension returns the dimension for channelID, creating an
	// empty one named name if none exists yet.
	EnsureDimension(ctx context.Context, channelID, name string) (dimension.Dimension, error)
	UpdateDimension(ctx context.Context, d dimension.Dimension) error
	ListDimensions(ctx context.Context) ([]dimension.Dimension, error)
	DeleteDimension(ctx context.Context, channelID string) error

	GetCaption(ctx context.Context, messageID string) (string, error)
	SetCaption(ctx context.Context, messageID, caption string) error

	GetPreset(ctx context.Context, name string) (Preset, error)
	CreatePreset(ctx context.Context, p Preset) (Preset, error)
	ListPresets(ctx context.Context) ([]Preset, error)
	DeletePreset(ctx context.Context, name string) error
}
