package inbound

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/campaign/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/session"
)

// HTTPEndpoint exposes the campaign composer. Every handler loads the
// session cookie, runs one use case and re-issues the cookie, also when
// the use case failed, since failures may clear the session.
type HTTPEndpoint struct {
	uc             uc
	jar            cookieJar
	maxUploadBytes int64
}

func (h *HTTPEndpoint) withSession(r *router.Request, fn func(ctx context.Context, sess *entity.Session) (any, error)) (any, error) {
	d := h.jar.Load(r.Request)
	sess := &entity.Session{
		Draft:           entity.Draft{Subject: d.Subject, Body: d.Body},
		RecipientsToken: d.RecipientsToken,
		UserID:          d.UserID,
	}

	resp, err := fn(r.Context(), sess)

	ck, errIssue := h.jar.Issue(session.Data{
		Subject:         sess.Subject,
		Body:            sess.Body,
		RecipientsToken: sess.RecipientsToken,
		UserID:          sess.UserID,
	})
	if errIssue != nil {
		if err != nil {
			return nil, err
		}
		if errors.Is(errIssue, session.ErrTooLarge) {
			slog.WarnContext(r.Context(), "session cookie too large, previous session kept")
			return nil, goerror.NewInvalidMessage("The draft is too long to keep. Please shorten it.")
		}
		slog.ErrorContext(r.Context(), "failed to issue session cookie", "error", errIssue)
		return nil, goerror.NewServer(errIssue)
	}
	r.SetCookie(ck)

	return resp, err
}

func (h *HTTPEndpoint) Preview(r *router.Request) (any, error) {
	return h.withSession(r, func(ctx context.Context, sess *entity.Session) (any, error) {
		resp, err := h.uc.Preview(ctx, sess)
		if err != nil {
			return nil, err
		}

		return CampaignResponse{
			State:      resp.State.String(),
			Subject:    resp.Draft.Subject,
			Body:       resp.Draft.Body,
			Recipients: emptyIfNil(resp.Recipients),
		}, nil
	})
}

// Generate accepts multipart fields prompt and csv_file.
func (h *HTTPEndpoint) Generate(r *router.Request) (any, error) {
	if err := r.ParseMultipart(h.maxUploadBytes); err != nil {
		return nil, err
	}

	csv, _, err := r.FormFile("csv_file")
	if err != nil {
		return nil, err
	}

	in := usecase.GenerateInput{Prompt: r.FormText("prompt"), CSVFile: csv}

	return h.withSession(r, func(ctx context.Context, sess *entity.Session) (any, error) {
		resp, err := h.uc.Generate(ctx, sess, in)
		if err != nil {
			return nil, err
		}

		return GenerateResponse{CampaignResponse{
			State:      resp.State.String(),
			Subject:    resp.Draft.Subject,
			Body:       resp.Draft.Body,
			Recipients: resp.Recipients,
		}}, nil
	})
}

func (h *HTTPEndpoint) Edit(r *router.Request) (any, error) {
	var req EditRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return h.withSession(r, func(ctx context.Context, sess *entity.Session) (any, error) {
		resp, err := h.uc.Edit(ctx, sess, usecase.EditInput{Subject: req.Subject, Body: req.Body})
		if err != nil {
			return nil, err
		}

		return EditResponse{Subject: resp.Draft.Subject, Body: resp.Draft.Body}, nil
	})
}

func (h *HTTPEndpoint) Prune(r *router.Request) (any, error) {
	var req PruneRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return h.withSession(r, func(ctx context.Context, sess *entity.Session) (any, error) {
		resp, err := h.uc.Prune(ctx, sess, usecase.PruneInput{Addresses: req.Addresses})
		if err != nil {
			return nil, err
		}

		return PruneResponse{State: resp.State.String(), Recipients: emptyIfNil(resp.Recipients)}, nil
	})
}

// Send always answers 200 once the batch ran; per-recipient failures are
// in results.
func (h *HTTPEndpoint) Send(r *router.Request) (any, error) {
	return h.withSession(r, func(ctx context.Context, sess *entity.Session) (any, error) {
		resp, err := h.uc.Send(ctx, sess)
		if err != nil {
			return nil, err
		}

		results := make([]DeliveryResult, 0, len(resp.Outcomes))
		for _, o := range resp.Outcomes {
			results = append(results, DeliveryResult{Recipient: o.Recipient, OK: o.OK, Error: o.Error})
		}

		return SendResponse{
			BatchID: strconv.FormatInt(resp.BatchID, 10),
			Subject: resp.Draft.Subject,
			Body:    resp.Draft.Body,
			Total:   len(resp.Outcomes),
			Sent:    resp.Sent,
			Failed:  resp.Failed,
			Results: results,
		}, nil
	})
}

func (h *HTTPEndpoint) Reset(r *router.Request) (any, error) {
	return h.withSession(r, func(ctx context.Context, sess *entity.Session) (any, error) {
		if err := h.uc.Reset(ctx, sess); err != nil {
			return nil, err
		}
		return ResetResponse{State: entity.StateEmpty.String()}, nil
	})
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
