package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediaflow/internal/services"
)

const watchfolderColumns = "id, name, watch_type, active, status, last_error, preset_id, path, output_path, archive_path, ftp_host, ftp_port, ftp_user, ftp_password, ftp_remote_path, ftp_staging_path, created_at, updated_at"

func scanWatchfolder(scanner rowScanner) (*Watchfolder, error) {
	var (
		id          int64
		name        string
		watchType   string
		active      int64
		status      string
		lastError   sql.NullString
		presetID    sql.NullInt64
		path        sql.NullString
		outputPath  string
		archivePath sql.NullString
		ftpHost     sql.NullString
		ftpPort     sql.NullInt64
		ftpUser     sql.NullString
		ftpPassword sql.NullString
		ftpRemote   sql.NullString
		ftpStaging  sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&name,
		&watchType,
		&active,
		&status,
		&lastError,
		&presetID,
		&path,
		&outputPath,
		&archivePath,
		&ftpHost,
		&ftpPort,
		&ftpUser,
		&ftpPassword,
		&ftpRemote,
		&ftpStaging,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	folder := &Watchfolder{
		ID:             id,
		Name:           name,
		WatchType:      WatchType(watchType),
		Active:         active != 0,
		Status:         WatchfolderStatus(status),
		LastError:      lastError.String,
		PresetID:       presetID.Int64,
		Path:           path.String,
		OutputPath:     outputPath,
		ArchivePath:    archivePath.String,
		FTPHost:        ftpHost.String,
		FTPPort:        int(ftpPort.Int64),
		FTPUser:        ftpUser.String,
		FTPPassword:    ftpPassword.String,
		FTPRemotePath:  ftpRemote.String,
		FTPStagingPath: ftpStaging.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		folder.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		folder.UpdatedAt = updated
	}
	return folder, nil
}

// CreateWatchfolder validates and inserts a watchfolder. New watchfolders
// start idle; the disabled surface status follows the active flag.
func (s *Store) CreateWatchfolder(ctx context.Context, folder *Watchfolder) (*Watchfolder, error) {
	if err := folder.Validate(); err != nil {
		return nil, err
	}
	now := timestamp(time.Now())
	port := folder.FTPPort
	if port == 0 {
		port = 21
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO watchfolders (
            name, watch_type, active, status, preset_id, path, output_path,
            archive_path, ftp_host, ftp_port, ftp_user, ftp_password,
            ftp_remote_path, ftp_staging_path, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		folder.Name,
		string(folder.WatchType),
		boolToInt(folder.Active),
		string(WatchfolderIdle),
		nullableInt64(folder.PresetID),
		nullableString(folder.Path),
		folder.OutputPath,
		nullableString(folder.ArchivePath),
		nullableString(folder.FTPHost),
		port,
		nullableString(folder.FTPUser),
		nullableString(folder.FTPPassword),
		nullableString(folder.FTPRemotePath),
		nullableString(folder.FTPStagingPath),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert watchfolder: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.WatchfolderByID(ctx, id)
}

// WatchfolderByID fetches one watchfolder, credentials included. Callers
// serving reads over the wire must convert through the api package, which
// never serializes the password.
func (s *Store) WatchfolderByID(ctx context.Context, id int64) (*Watchfolder, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+watchfolderColumns+" FROM watchfolders WHERE id = ?", id)
	folder, err := scanWatchfolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("watchfolder %d: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query watchfolder: %w", err)
	}
	return folder, nil
}

// ListWatchfolders returns all watchfolders ordered by name.
func (s *Store) ListWatchfolders(ctx context.Context) ([]*Watchfolder, error) {
	return s.queryWatchfolders(ctx, "SELECT "+watchfolderColumns+" FROM watchfolders ORDER BY name")
}

// ListActiveWatchfolders returns the watchfolders the ingest manager should
// be polling.
func (s *Store) ListActiveWatchfolders(ctx context.Context) ([]*Watchfolder, error) {
	return s.queryWatchfolders(ctx, "SELECT "+watchfolderColumns+" FROM watchfolders WHERE active = 1 ORDER BY id")
}

func (s *Store) queryWatchfolders(ctx context.Context, query string, args ...any) ([]*Watchfolder, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list watchfolders: %w", err)
	}
	defer rows.Close()

	var folders []*Watchfolder
	for rows.Next() {
		folder, err := scanWatchfolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watchfolder: %w", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// UpdateWatchfolder validates and stores edits. An empty FTPPassword keeps
// the stored credential; passwords are write-only on the wire so an update
// round-trip would otherwise erase them.
func (s *Store) UpdateWatchfolder(ctx context.Context, folder *Watchfolder) (*Watchfolder, error) {
	current, err := s.WatchfolderByID(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	if folder.FTPPassword == "" {
		folder.FTPPassword = current.FTPPassword
	}
	if err := folder.Validate(); err != nil {
		return nil, err
	}
	port := folder.FTPPort
	if port == 0 {
		port = 21
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE watchfolders SET
            name = ?, watch_type = ?, active = ?, preset_id = ?, path = ?,
            output_path = ?, archive_path = ?, ftp_host = ?, ftp_port = ?,
            ftp_user = ?, ftp_password = ?, ftp_remote_path = ?,
            ftp_staging_path = ?, updated_at = ?
        WHERE id = ?`,
		folder.Name,
		string(folder.WatchType),
		boolToInt(folder.Active),
		nullableInt64(folder.PresetID),
		nullableString(folder.Path),
		folder.OutputPath,
		nullableString(folder.ArchivePath),
		nullableString(folder.FTPHost),
		port,
		nullableString(folder.FTPUser),
		nullableString(folder.FTPPassword),
		nullableString(folder.FTPRemotePath),
		nullableString(folder.FTPStagingPath),
		timestamp(time.Now()),
		folder.ID,
	); err != nil {
		return nil, fmt.Errorf("update watchfolder: %w", err)
	}
	return s.WatchfolderByID(ctx, folder.ID)
}

// SetWatchfolderActive toggles polling without touching any other field.
func (s *Store) SetWatchfolderActive(ctx context.Context, id int64, active bool) error {
	res, err := s.execWithRetry(
		ctx,
		"UPDATE watchfolders SET active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set watchfolder active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("watchfolder %d: %w", id, services.ErrNotFound)
	}
	return nil
}

// SetWatchfolderStatus records poller health. Status must be idle or error;
// disabled is derived from the active flag, never stored. Health writes leave
// updated_at alone so they do not count as configuration edits.
func (s *Store) SetWatchfolderStatus(ctx context.Context, id int64, status WatchfolderStatus, lastError string) error {
	if status != WatchfolderIdle && status != WatchfolderError {
		return services.Wrap(services.ErrConfiguration, "watchfolder", "set status", fmt.Sprintf("cannot store status %q", status), nil)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		"UPDATE watchfolders SET status = ?, last_error = ? WHERE id = ?",
		string(status),
		nullableString(lastError),
		id,
	); err != nil {
		return fmt.Errorf("set watchfolder status: %w", err)
	}
	return nil
}

// DeleteWatchfolder removes a watchfolder. Historical jobs survive with their
// watchfolder reference cleared by the schema's ON DELETE SET NULL.
func (s *Store) DeleteWatchfolder(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM watchfolders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete watchfolder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("watchfolder %d: %w", id, services.ErrNotFound)
	}
	return nil
}
