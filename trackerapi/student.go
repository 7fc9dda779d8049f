package trackerapi

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

// ErrMalformed is returned when a 2xx response lacks the expected shape.
var ErrMalformed = errors.New("malformed response")

// StudentSyllabuses lists the syllabuses assigned to a student.
func (c *Client) StudentSyllabuses(ctx context.Context, email string) ([]SyllabusInfo, error) {
	var result struct {
		Success    bool           `json:"success"`
		Syllabuses []SyllabusInfo `json:"syllabuses"`
		Error      string         `json:"error"`
	}
	if err := c.getJSON(ctx, "/student-syllabuses", url.Values{"student_email": {email}}, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, &RejectedError{Message: result.Error}
	}
	return result.Syllabuses, nil
}

// Syllabus fetches the full topic tree. A response without variants is ErrMalformed.
func (c *Client) Syllabus(ctx context.Context, id string) (*Syllabus, error) {
	var result dataEnvelope[*Syllabus]
	if err := c.getJSON(ctx, "/syllabus/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	if result.Data == nil || result.Data.Variants == nil {
		return nil, errors.Wrapf(ErrMalformed, "syllabus %s has no variants", id)
	}
	if result.Data.ID == "" {
		result.Data.ID = id
	}
	return result.Data, nil
}

// StudentProgress returns the completion snapshot of a student on a syllabus.
func (c *Client) StudentProgress(ctx context.Context, email, syllabusID string) (*ProgressSnapshot, error) {
	var result struct {
		Success  bool              `json:"success"`
		Progress *ProgressSnapshot `json:"progress"`
		Error    string            `json:"error"`
	}
	query := url.Values{"student_email": {email}, "syllabus_id": {syllabusID}}
	if err := c.getJSON(ctx, "/student-progress", query, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, &RejectedError{Message: result.Error}
	}
	if result.Progress == nil {
		return nil, errors.Wrap(ErrMalformed, "progress missing")
	}
	return result.Progress, nil
}

// UpdateTopic upserts one topic's completion flag and returns the server-confirmed state.
func (c *Client) UpdateTopic(ctx context.Context, update TopicUpdate) (*ProgressSnapshot, error) {
	var result struct {
		Success         bool             `json:"success"`
		Error           string           `json:"error"`
		Topics          []TopicState     `json:"topics"`
		OverallProgress *OverallProgress `json:"overall_progress"`
	}
	if err := c.postJSON(ctx, "/update-topic", update, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Update failed"
		}
		return nil, &RejectedError{Message: msg}
	}
	return &ProgressSnapshot{Topics: result.Topics, OverallProgress: result.OverallProgress}, nil
}
