package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkMailer sends via Postmark's templated transactional API.
// Template aliases are configured server-side to match TemplateKind values.
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

func NewPostmarkMailer(serverToken, accountToken, from string) (*PostmarkMailer, error) {
	if serverToken == "" || accountToken == "" {
		return nil, errors.New("postmark tokens are required")
	}
	if from == "" {
		return nil, errors.New("sender address is required")
	}
	return &PostmarkMailer{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

func (m *PostmarkMailer) Send(ctx context.Context, kind TemplateKind, p Payload) error {
	if p.To == "" {
		return errors.New("recipient address is empty")
	}

	resp, err := m.client.SendTemplatedEmail(ctx, postmark.TemplatedEmail{
		TemplateAlias: string(kind),
		TemplateModel: map[string]any{
			"user_name":   p.UserName,
			"title":       p.Title,
			"description": p.Description,
			"link":        p.Link,
		},
		From:       m.from,
		To:         p.To,
		TrackOpens: true,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

var _ Mailer = (*PostmarkMailer)(nil)
