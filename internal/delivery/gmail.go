package delivery

import (
	"context"

	"folio/internal/gmail"
	"folio/internal/model"
)

// GmailSender is satisfied by *gmail.Sender.
type GmailSender interface {
	Send(ctx context.Context, m gmail.Message) (string, error)
}

// Gmail sends as the owner's own account. It counts as configured only once
// a sender could be built from cached credentials.
type Gmail struct {
	Sender GmailSender
}

func (g *Gmail) Method() Method { return MethodGmail }

func (g *Gmail) Configured() bool { return g.Sender != nil }

func (g *Gmail) Attempt(ctx context.Context, req model.ReplyRequest) (Outcome, error) {
	id, err := g.Sender.Send(ctx, gmail.Message{
		FromName: req.FromName,
		From:     req.FromEmail,
		ToName:   req.ToName,
		To:       req.To,
		ReplyTo:  req.FromEmail,
		Subject:  req.Subject,
		Text:     req.Message,
		HTML:     req.HTML,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: "Email sent successfully via Gmail!", Response: id}, nil
}
