package dashboard

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/refresh"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
)

const (
	MsgEmailRequired    = "Student email is required"
	MsgEmailInvalid     = "Invalid student email format"
	MsgSyllabusRequired = "Syllabus ID is required"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names, e.g. student_email
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Assign assigns a syllabus to a student, then reloads the dashboard.
func (s *Store) Assign(ctx context.Context, email, syllabusID string) error {
	return s.write(ctx, "assign", email, syllabusID, s.api.AssignSyllabus)
}

// Remove removes a syllabus from a student, then reloads the dashboard.
func (s *Store) Remove(ctx context.Context, email, syllabusID string) error {
	return s.write(ctx, "remove", email, syllabusID, s.api.RemoveSyllabus)
}

// write validates the assignment and sends it once. Failures are returned with a friendly
// message and never retried. A failed reload after a successful write is only logged.
func (s *Store) write(ctx context.Context, op, email, syllabusID string, send func(context.Context, trackerapi.Assignment) (string, error)) error {
	a := trackerapi.Assignment{
		StudentEmail: strings.TrimSpace(email),
		SyllabusID:   strings.TrimSpace(syllabusID),
	}
	if err := s.validateAssignment(a); err != nil {
		return err
	}

	msg, err := send(ctx, a)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Str("email", a.StudentEmail).Str("syllabus_id", a.SyllabusID).Msg("syllabus assignment failed")
		return apperrors.Friendly(err, apperrors.ErrWrite)
	}

	s.Notify(refresh.LevelSuccess, msg)
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Str("op", op).Msg("reload after assignment change")
	}
	return nil
}

func (s *Store) validateAssignment(a trackerapi.Assignment) error {
	err := s.validate.Struct(a)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Mark(err, apperrors.ErrInvalidInput)
	}
	fe := fieldErrs[0]
	msg := fe.Error()
	switch {
	case fe.Field() == "student_email" && fe.Tag() == "required":
		msg = MsgEmailRequired
	case fe.Field() == "student_email":
		msg = MsgEmailInvalid
	case fe.Field() == "syllabus_id":
		msg = MsgSyllabusRequired
	}
	return apperrors.Friendly(errors.New(msg), apperrors.ErrInvalidInput)
}
