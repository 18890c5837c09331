package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"folio/internal/model"
)

const table = "/rest/v1/contact_submissions"

var returnRepresentation = map[string]string{"Prefer": "return=representation"}

func (c *Client) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	raw, err := c.do(ctx, http.MethodGet, table, url.Values{
		"select": {"*"},
		"order":  {"submitted_at.desc"},
	}, nil, tokenFrom(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return decodeRows(raw)
}

func (c *Client) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	raw, err := c.do(ctx, http.MethodGet, table, url.Values{
		"select": {"*"},
		"id":     {"eq." + id},
	}, nil, tokenFrom(ctx), nil)
	if err != nil {
		return model.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return single(raw, id)
}

func (c *Client) InsertSubmission(ctx context.Context, in model.NewSubmission) (model.Submission, error) {
	row := map[string]string{
		"name":    in.Name,
		"email":   in.Email,
		"subject": in.Subject,
		"message": in.Message,
		"status":  string(model.StatusNew),
	}
	raw, err := c.do(ctx, http.MethodPost, table, nil, []map[string]string{row}, tokenFrom(ctx), returnRepresentation)
	if err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return single(raw, "")
}

// UpdateStatus stamps read_at when marking read and clears it otherwise.
func (c *Client) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	patch := map[string]any{"status": status, "read_at": nil}
	if status == model.StatusRead {
		patch["read_at"] = c.now().UTC()
	}
	raw, err := c.do(ctx, http.MethodPatch, table, url.Values{"id": {"eq." + id}}, patch, tokenFrom(ctx), returnRepresentation)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	_, err = single(raw, id)
	return err
}

func (c *Client) DeleteSubmission(ctx context.Context, id string) error {
	raw, err := c.do(ctx, http.MethodDelete, table, url.Values{"id": {"eq." + id}}, nil, tokenFrom(ctx), returnRepresentation)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	_, err = single(raw, id)
	return err
}

// Stats fetches only status and submitted_at and tallies locally.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	raw, err := c.do(ctx, http.MethodGet, table, url.Values{"select": {"status,submitted_at"}}, nil, tokenFrom(ctx), nil)
	if err != nil {
		return model.Stats{}, fmt.Errorf("stats: %w", err)
	}
	subs, err := decodeRows(raw)
	if err != nil {
		return model.Stats{}, err
	}
	return model.TallyStats(subs, c.now()), nil
}

func decodeRows(raw []byte) ([]model.Submission, error) {
	var subs []model.Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return subs, nil
}

func single(raw []byte, id string) (model.Submission, error) {
	subs, err := decodeRows(raw)
	if err != nil {
		return model.Submission{}, err
	}
	if len(subs) == 0 {
		return model.Submission{}, fmt.Errorf("submission %s: %w", id, model.ErrNotFound)
	}
	return subs[0], nil
}
