package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediaflow/internal/services"
)

const presetColumns = "id, name, description, video_codec, video_bitrate, audio_codec, audio_bitrate, audio_sample_rate, audio_channels, container, extra_params, created_at, updated_at"

func scanPreset(scanner rowScanner) (*Preset, error) {
	var (
		id           int64
		name         string
		description  sql.NullString
		videoCodec   string
		videoBitrate sql.NullString
		audioCodec   string
		audioBitrate sql.NullString
		sampleRate   sql.NullInt64
		channels     sql.NullInt64
		container    string
		extraParams  sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&name,
		&description,
		&videoCodec,
		&videoBitrate,
		&audioCodec,
		&audioBitrate,
		&sampleRate,
		&channels,
		&container,
		&extraParams,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	preset := &Preset{
		ID:              id,
		Name:            name,
		Description:     description.String,
		VideoCodec:      videoCodec,
		VideoBitrate:    videoBitrate.String,
		AudioCodec:      audioCodec,
		AudioBitrate:    audioBitrate.String,
		AudioSampleRate: int(sampleRate.Int64),
		AudioChannels:   int(channels.Int64),
		Container:       container,
		ExtraParams:     extraParams.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		preset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		preset.UpdatedAt = updated
	}
	return preset, nil
}

// CreatePreset validates and inserts a preset, returning the stored row.
func (s *Store) CreatePreset(ctx context.Context, preset *Preset) (*Preset, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	now := timestamp(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO presets (
            name, description, video_codec, video_bitrate, audio_codec,
            audio_bitrate, audio_sample_rate, audio_channels, container,
            extra_params, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		preset.Name,
		nullableString(preset.Description),
		preset.VideoCodec,
		nullableString(preset.VideoBitrate),
		preset.AudioCodec,
		nullableString(preset.AudioBitrate),
		preset.AudioSampleRate,
		preset.AudioChannels,
		preset.Container,
		nullableString(preset.ExtraParams),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert preset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.PresetByID(ctx, id)
}

// PresetByID fetches one preset.
func (s *Store) PresetByID(ctx context.Context, id int64) (*Preset, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+presetColumns+" FROM presets WHERE id = ?", id)
	preset, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("preset %d: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query preset: %w", err)
	}
	return preset, nil
}

// ListPresets returns all presets ordered by name.
func (s *Store) ListPresets(ctx context.Context) ([]*Preset, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+presetColumns+" FROM presets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []*Preset
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		presets = append(presets, preset)
	}
	return presets, rows.Err()
}

// UpdatePreset validates and stores edits. Edits apply only to jobs created
// afterwards; the executor reads the preset once at claim time.
func (s *Store) UpdatePreset(ctx context.Context, preset *Preset) (*Preset, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE presets SET
            name = ?, description = ?, video_codec = ?, video_bitrate = ?,
            audio_codec = ?, audio_bitrate = ?, audio_sample_rate = ?,
            audio_channels = ?, container = ?, extra_params = ?, updated_at = ?
        WHERE id = ?`,
		preset.Name,
		nullableString(preset.Description),
		preset.VideoCodec,
		nullableString(preset.VideoBitrate),
		preset.AudioCodec,
		nullableString(preset.AudioBitrate),
		preset.AudioSampleRate,
		preset.AudioChannels,
		preset.Container,
		nullableString(preset.ExtraParams),
		timestamp(time.Now()),
		preset.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update preset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("preset %d: %w", preset.ID, services.ErrNotFound)
	}
	return s.PresetByID(ctx, preset.ID)
}

// DeletePreset removes a preset unless a watchfolder still references it.
func (s *Store) DeletePreset(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)

	var refs int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM watchfolders WHERE preset_id = ?", id,
	).Scan(&refs); err != nil {
		return fmt.Errorf("count preset references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("preset %d has %d watchfolder reference(s): %w", id, refs, ErrPresetInUse)
	}

	res, err := s.execWithRetry(ctx, "DELETE FROM presets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("preset %d: %w", id, services.ErrNotFound)
	}
	return nil
}
