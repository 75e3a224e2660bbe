package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/campaign/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/session"
)

type uc interface {
	Preview(ctx context.Context, sess *entity.Session) (*usecase.PreviewOutput, error)
	Generate(ctx context.Context, sess *entity.Session, in usecase.GenerateInput) (*usecase.GenerateOutput, error)
	Edit(ctx context.Context, sess *entity.Session, in usecase.EditInput) (*usecase.EditOutput, error)
	Prune(ctx context.Context, sess *entity.Session, in usecase.PruneInput) (*usecase.PruneOutput, error)
	Send(ctx context.Context, sess *entity.Session) (*usecase.SendOutput, error)
	Reset(ctx context.Context, sess *entity.Session) error
}

type cookieJar interface {
	Load(r *http.Request) session.Data
	Issue(d session.Data) (*http.Cookie, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, jar cookieJar, maxUploadBytes int64) {
	end := &HTTPEndpoint{uc: uc, jar: jar, maxUploadBytes: maxUploadBytes}

	r.GET("/api/v1/campaign", end.Preview)
	r.POST("/api/v1/campaign/generate", end.Generate)
	r.PUT("/api/v1/campaign/draft", end.Edit)
	r.POST("/api/v1/campaign/recipients/prune", end.Prune)
	r.POST("/api/v1/campaign/send", end.Send)
	r.DELETE("/api/v1/campaign", end.Reset)
}
