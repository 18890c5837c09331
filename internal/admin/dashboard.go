// Package admin holds the contact-review operations shared by the terminal
// dashboard and the admin HTTP API.
package admin

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"folio/internal/delivery"
	"folio/internal/model"
)

// SubmissionStore is the row store, local or hosted.
type SubmissionStore interface {
	ListSubmissions(ctx context.Context) ([]model.Submission, error)
	GetSubmission(ctx context.Context, id string) (model.Submission, error)
	InsertSubmission(ctx context.Context, in model.NewSubmission) (model.Submission, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	DeleteSubmission(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.Stats, error)
}

// Sender is satisfied by *delivery.Chain.
type Sender interface {
	Send(ctx context.Context, req model.ReplyRequest) delivery.Result
}

type Owner struct {
	Name  string
	Email string
}

// Snapshot is the dashboard state as of one load; it is not kept live.
type Snapshot struct {
	Submissions []model.Submission
	Stats       model.Stats
	LoadedAt    time.Time
}

// ErrEmptyReply is returned when a reply has no body.
var ErrEmptyReply = errors.New("reply message is empty")

type Dashboard struct {
	store  SubmissionStore
	sender Sender
	owner  Owner
	now    func() time.Time
	log    *zap.Logger
}

func New(store SubmissionStore, sender Sender, owner Owner, log *zap.Logger) *Dashboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dashboard{store: store, sender: sender, owner: owner, now: time.Now, log: log}
}

func (d *Dashboard) Owner() Owner { return d.owner }

// Load fetches submissions and stats concurrently. Either failure fails the load.
func (d *Dashboard) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subs, err := d.store.ListSubmissions(gctx)
		if err != nil {
			return fmt.Errorf("load submissions: %w", err)
		}
		snap.Submissions = subs
		return nil
	})
	g.Go(func() error {
		st, err := d.store.Stats(gctx)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		snap.Stats = st
		return nil
	})
	if err := g.Wait(); err != nil {
		d.log.Warn("dashboard load failed", zap.Error(err))
		return Snapshot{}, err
	}
	snap.LoadedAt = d.now()
	return snap, nil
}

// Submit stores a new contact submission.
func (d *Dashboard) Submit(ctx context.Context, in model.NewSubmission) (model.Submission, error) {
	sub, err := d.store.InsertSubmission(ctx, in)
	if err != nil {
		return model.Submission{}, err
	}
	d.log.Info("contact submission stored", zap.String("id", sub.ID), zap.String("email", sub.Email))
	return sub, nil
}

func (d *Dashboard) Get(ctx context.Context, id string) (model.Submission, error) {
	return d.store.GetSubmission(ctx, id)
}

func (d *Dashboard) MarkRead(ctx context.Context, id string) error {
	return d.setStatus(ctx, id, model.StatusRead)
}

func (d *Dashboard) MarkUnread(ctx context.Context, id string) error {
	return d.setStatus(ctx, id, model.StatusNew)
}

func (d *Dashboard) setStatus(ctx context.Context, id string, status model.Status) error {
	if err := d.store.UpdateStatus(ctx, id, status); err != nil {
		d.log.Warn("status update failed", zap.String("id", id), zap.String("status", string(status)), zap.Error(err))
		return err
	}
	d.log.Info("status updated", zap.String("id", id), zap.String("status", string(status)))
	return nil
}

func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if err := d.store.DeleteSubmission(ctx, id); err != nil {
		d.log.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	d.log.Info("submission deleted", zap.String("id", id))
	return nil
}

// ReplyRequest addresses a reply to the submitter from the site owner.
func (d *Dashboard) ReplyRequest(sub model.Submission, message string) model.ReplyRequest {
	return model.ReplyRequest{
		To:        sub.Email,
		ToName:    sub.Name,
		FromName:  d.owner.Name,
		FromEmail: d.owner.Email,
		Subject:   "Re: " + sub.Subject,
		Message:   message,
	}
}

// Reply sends message to the submitter through the delivery chain.
func (d *Dashboard) Reply(ctx context.Context, sub model.Submission, message string) (delivery.Result, error) {
	if strings.TrimSpace(message) == "" {
		return delivery.Result{}, ErrEmptyReply
	}
	res := d.sender.Send(ctx, d.ReplyRequest(sub, message))
	d.log.Info("reply finished", zap.String("id", sub.ID), zap.Bool("success", res.Success), zap.String("method", string(res.Method)))
	return res, nil
}

// Notify tells the owner about a new submission.
func (d *Dashboard) Notify(ctx context.Context, sub model.Submission) delivery.Result {
	res := d.sender.Send(ctx, NotificationRequest(sub, d.owner))
	if !res.Success {
		d.log.Warn("owner notification failed", zap.String("id", sub.ID), zap.Error(res.Err))
	}
	return res
}

// NotificationRequest renders the owner's new-submission email.
func NotificationRequest(sub model.Submission, owner Owner) model.ReplyRequest {
	submitted := sub.SubmittedAt.Local().Format("Jan 2, 2006 3:04 PM")
	text := fmt.Sprintf("New Contact Form Submission\n\nName: %s\nEmail: %s\nSubject: %s\n\nMessage:\n%s\n\nSubmitted: %s\n",
		sub.Name, sub.Email, sub.Subject, sub.Message, submitted)

	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>\n", html.EscapeString(sub.Name))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>\n", html.EscapeString(sub.Email))
	fmt.Fprintf(&b, "<p><strong>Subject:</strong> %s</p>\n", html.EscapeString(sub.Subject))
	b.WriteString("<p><strong>Message:</strong></p>\n")
	fmt.Fprintf(&b, `<div style="background: #f5f5f5; padding: 15px; border-radius: 5px;">%s</div>`+"\n",
		strings.ReplaceAll(html.EscapeString(sub.Message), "\n", "<br>"))
	fmt.Fprintf(&b, "<p><strong>Submitted:</strong> %s</p>\n", submitted)
	b.WriteString("<hr>\n<p><small>This email was sent automatically from your portfolio contact form.</small></p>\n")

	return model.ReplyRequest{
		To:        owner.Email,
		ToName:    owner.Name,
		FromName:  sub.Name,
		FromEmail: sub.Email,
		Subject:   "New Contact Form Submission: " + sub.Subject,
		Message:   text,
		HTML:      b.String(),
	}
}
