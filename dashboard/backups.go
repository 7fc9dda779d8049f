package dashboard

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/refresh"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
)

func (s *Store) Backups(ctx context.Context) ([]trackerapi.Backup, error) {
	list, err := s.api.Backups(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing backups")
		return nil, apperrors.Friendly(err, apperrors.ErrLoad)
	}
	return list, nil
}

func (s *Store) CreateBackup(ctx context.Context, name string) error {
	return s.backupOp(ctx, "create", name, s.api.CreateBackup)
}

// RestoreBackup replaces the backend data with the named backup and reloads the dashboard.
func (s *Store) RestoreBackup(ctx context.Context, name string) error {
	if err := s.backupOp(ctx, "restore", name, s.api.RestoreBackup); err != nil {
		return err
	}
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("reload after restore")
	}
	return nil
}

func (s *Store) DeleteBackup(ctx context.Context, name string) error {
	return s.backupOp(ctx, "delete", name, s.api.DeleteBackup)
}

func (s *Store) backupOp(ctx context.Context, op, name string, call func(context.Context, string) (string, error)) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.Friendly(errors.New("Backup name is required"), apperrors.ErrInvalidInput)
	}
	msg, err := call(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Str("backup", name).Msg("backup operation failed")
		err = apperrors.Friendly(err, apperrors.ErrWrite)
		s.Notify(refresh.LevelError, err.Error())
		return err
	}
	s.Notify(refresh.LevelSuccess, msg)
	return nil
}
