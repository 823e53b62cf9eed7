package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/config"
	"github.com/troupehq/troupe/internal/dimension"
)

// Postgres implements Store against a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

func NewPostgres(log *slog.Logger, pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool:   pool,
		logger: log.With(slog.String("service", "store")),
	}
}

// DSN builds a pgx connection string from the config section.
func DSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
}

func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

func (p *Postgres) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM configs WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get config %q: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) SetConfig(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO configs (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) ListConfigs(ctx context.Context) (map[string]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, value FROM configs`)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		configs[key] = value
	}
	return configs, rows.Err()
}

const characterColumns = `name, persona, examples, instructions, avatar, info, triggers`

func scanCharacter(row pgx.Row) (character.Character, error) {
	var c character.Character
	err := row.Scan(&c.Name, &c.Persona, &c.Examples, &c.Instructions, &c.Avatar, &c.Info, &c.Triggers)
	return c, err
}

func (p *Postgres) GetCharacter(ctx context.Context, name string) (character.Character, error) {
	c, err := scanCharacter(p.pool.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return character.Character{}, ErrNotFound
	}
	if err != nil {
		return character.Character{}, fmt.Errorf("get character %q: %w", name, err)
	}
	return c, nil
}

// ListCharacters returns all characters ordered by name. The trigger
// resolver's fuzzy rule iterates this list in order and stops at the first
// match, so the ordering here decides which of two mentioned characters
// responds.
func (p *Postgres) ListCharacters(ctx context.Context) ([]character.Character, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+characterColumns+` FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var characters []character.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		characters = append(characters, c)
	}
	return characters, rows.Err()
}

func (p *Postgres) CreateCharacter(ctx context.Context, c character.Character) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO characters (name, persona, examples, instructions, avatar, info, triggers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.Name, c.Persona, c.Examples, c.Instructions, c.Avatar, c.Info, c.Triggers)
	if err != nil {
		return fmt.Errorf("create character %q: %w", c.Name, err)
	}
	return nil
}

func (p *Postgres) UpdateCharacter(ctx context.Context, c character.Character) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE characters
		SET persona = $2, examples = $3, instructions = $4, avatar = $5, info = $6, triggers = $7, updated_at = now()
		WHERE name = $1`,
		c.Name, c.Persona, c.Examples, c.Instructions, c.Avatar, c.Info, c.Triggers)
	if err != nil {
		return fmt.Errorf("update character %q: %w", c.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteCharacter(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM characters WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete character %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const dimensionColumns = `channel_id, name, instruction, global_note, location, lorebook, whitelist`

func scanDimension(row pgx.Row) (dimension.Dimension, error) {
	var d dimension.Dimension
	err := row.Scan(&d.ChannelID, &d.Name, &d.Instruction, &d.GlobalNote, &d.Location, &d.Lorebook, &d.Whitelist)
	return d, err
}

func (p *Postgres) GetDimension(ctx context.Context, channelID string) (dimension.Dimension, error) {
	d, err := scanDimension(p.pool.QueryRow(ctx,
		`SELECT `+dimensionColumns+` FROM dimensions WHERE channel_id = $1`, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return dimension.Dimension{}, ErrNotFound
	}
	if err != nil {
		return dimension.Dimension{}, fmt.Errorf("get dimension %q: %w", channelID, err)
	}
	return d, nil
}

func (p *Postgres) EnsureDimension(ctx context.Context, channelID, name string) (dimension.Dimension, error) {
	d, err := scanDimension(p.pool.QueryRow(ctx, `
		INSERT INTO dimensions (channel_id, name) VALUES ($1, $2)
		ON CONFLICT (channel_id) DO UPDATE SET channel_id = EXCLUDED.channel_id
		RETURNING `+dimensionColumns, channelID, name))
	if err != nil {
		return dimension.Dimension{}, fmt.Errorf("ensure dimension %q: %w", channelID, err)
	}
	return d, nil
}

func (p *Postgres) UpdateDimension(ctx context.Context, d dimension.Dimension) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE dimensions
		SET name = $2, instruction = $3, global_note = $4, location = $5, lorebook = $6, whitelist = $7, updated_at = now()
		WHERE channel_id = $1`,
		d.ChannelID, d.Name, d.Instruction, d.GlobalNote, d.Location, d.Lorebook, d.Whitelist)
	if err != nil {
		return fmt.Errorf("update dimension %q: %w", d.ChannelID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListDimensions(ctx context.Context) ([]dimension.Dimension, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+dimensionColumns+` FROM dimensions ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list dimensions: %w", err)
	}
	defer rows.Close()

	var dimensions []dimension.Dimension
	for rows.Next() {
		d, err := scanDimension(rows)
		if err != nil {
			return nil, err
		}
		dimensions = append(dimensions, d)
	}
	return dimensions, rows.Err()
}

func (p *Postgres) DeleteDimension(ctx context.Context, channelID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM dimensions WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("delete dimension %q: %w", channelID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetCaption(ctx context.Context, messageID string) (string, error) {
	var caption string
	err := p.pool.QueryRow(ctx,
		`SELECT caption FROM captions WHERE message_id = $1`, messageID).Scan(&caption)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get caption %q: %w", messageID, err)
	}
	return caption, nil
}

func (p *Postgres) SetCaption(ctx context.Context, messageID, caption string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO captions (message_id, caption) VALUES ($1, $2)
		ON CONFLICT (message_id) DO UPDATE SET caption = EXCLUDED.caption`,
		messageID, caption)
	if err != nil {
		return fmt.Errorf("set caption %q: %w", messageID, err)
	}
	return nil
}

func (p *Postgres) GetPreset(ctx context.Context, name string) (Preset, error) {
	var preset Preset
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, description, template FROM presets WHERE name = $1`, name).
		Scan(&preset.ID, &preset.Name, &preset.Description, &preset.Template)
	if errors.Is(err, pgx.ErrNoRows) {
		return Preset{}, ErrNotFound
	}
	if err != nil {
		return Preset{}, fmt.Errorf("get preset %q: %w", name, err)
	}
	return preset, nil
}

func (p *Postgres) CreatePreset(ctx context.Context, preset Preset) (Preset, error) {
	if preset.ID == uuid.Nil {
		preset.ID = uuid.New()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO presets (id, name, description, template) VALUES ($1, $2, $3, $4)`,
		preset.ID, preset.Name, preset.Description, preset.Template)
	if err != nil {
		return Preset{}, fmt.Errorf("create preset %q: %w", preset.Name, err)
	}
	return preset, nil
}

func (p *Postgres) ListPresets(ctx context.Context) ([]Preset, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, description, template FROM presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		var preset Preset
		if err := rows.Scan(&preset.ID, &preset.Name, &preset.Description, &preset.Template); err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}
	return presets, rows.Err()
}

func (p *Postgres) DeletePreset(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM presets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete preset %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
