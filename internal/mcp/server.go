package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"plotpact/internal/session"
	"plotpact/internal/story"
)

// StoryService is the part of session.Service the tools drive.
type StoryService interface {
	Create(ctx context.Context, title string) (*story.Session, error)
	CreateFromTemplate(ctx context.Context, name string) (*story.Session, error)
	Activate(ctx context.Context, id, title, plot string) (*story.Session, error)
	Submit(ctx context.Context, id, text string) (session.SubmitResult, error)
	Continue(ctx context.Context, id string) (session.ContinueResult, error)
	AddConstraint(ctx context.Context, id string, structure story.Structure) (*story.Session, error)
	DeleteConstraint(ctx context.Context, id, constraintID string) (*story.Session, error)
	DeleteConstraintsByDescription(ctx context.Context, id, description string) (*story.Session, error)
	End(ctx context.Context, id string) (*story.Session, error)
	Get(ctx context.Context, id string) (*story.Session, error)
	Templates() []session.Template
}

type Server struct {
	stories StoryService
	mcp     *sdk.Server
}

func NewServer(stories StoryService, version string) *Server {
	s := &Server{
		stories: stories,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "plotpact",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
