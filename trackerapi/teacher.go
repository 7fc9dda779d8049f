package trackerapi

import (
	"context"

	"github.com/pkg/errors"
)

// AllSyllabuses returns the full syllabus catalog.
func (c *Client) AllSyllabuses(ctx context.Context) ([]SyllabusInfo, error) {
	var result dataEnvelope[[]SyllabusInfo]
	if err := c.getJSON(ctx, "/all-syllabuses", nil, &result); err != nil {
		return nil, err
	}
	if result.Status != "success" || result.Data == nil {
		return nil, errors.Wrap(ErrMalformed, "invalid data format for syllabuses")
	}
	return result.Data, nil
}

// AllProgress returns the roster: one entry per student and assigned syllabus.
func (c *Client) AllProgress(ctx context.Context) ([]RosterEntry, error) {
	var result dataEnvelope[[]RosterEntry]
	if err := c.getJSON(ctx, "/all-progress", nil, &result); err != nil {
		return nil, err
	}
	if result.Status != "success" || result.Data == nil {
		return nil, errors.Wrap(ErrMalformed, "invalid data format received from server for student progress")
	}
	return result.Data, nil
}

// AssignSyllabus assigns a syllabus to a student and returns the server message.
func (c *Client) AssignSyllabus(ctx context.Context, a Assignment) (string, error) {
	return c.write(ctx, "/assign-syllabus", a, "Assignment failed")
}

// RemoveSyllabus removes a syllabus from a student and returns the server message.
func (c *Client) RemoveSyllabus(ctx context.Context, a Assignment) (string, error) {
	return c.write(ctx, "/remove-syllabus", a, "Removal failed")
}

func (c *Client) write(ctx context.Context, path string, body any, fallback string) (string, error) {
	var result writeResult
	if err := c.postJSON(ctx, path, body, &result); err != nil {
		return "", err
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = fallback
		}
		return "", &RejectedError{Message: msg}
	}
	return result.Message, nil
}
