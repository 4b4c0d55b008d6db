package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"plotpact/internal/session"
	"plotpact/internal/story"
)

type CreateStoryInput struct {
	Title    string `json:"title,omitempty" jsonschema:"story title"`
	Template string `json:"template,omitempty" jsonschema:"start from a named template instead of collecting a plot"`
}

type ActivateStoryInput struct {
	ID    string `json:"id" jsonschema:"story id"`
	Title string `json:"title,omitempty" jsonschema:"title, if not given at creation"`
	Plot  string `json:"plot" jsonschema:"premise of the story"`
}

type SubmitParagraphInput struct {
	ID   string `json:"id" jsonschema:"story id"`
	Text string `json:"text" jsonschema:"the paragraph to add"`
}

type StoryIDInput struct {
	ID string `json:"id" jsonschema:"story id"`
}

type AddConstraintInput struct {
	ID          string `json:"id" jsonschema:"story id"`
	Function    string `json:"function" jsonschema:"focusing or exclusionary"`
	Type        string `json:"type" jsonschema:"channel or anchor"`
	Flexibility string `json:"flexibility" jsonschema:"fixed, faux-fixed, or flexible"`
}

type DeleteConstraintInput struct {
	ID           string `json:"id" jsonschema:"story id"`
	ConstraintID string `json:"constraint_id,omitempty" jsonschema:"id of the constraint to remove"`
	Description  string `json:"description,omitempty" jsonschema:"remove every constraint with this description"`
}

type ListTemplatesInput struct{}

type ExamplesOutput struct {
	Valid   []string `json:"valid"`
	Invalid []string `json:"invalid"`
}

type ConstraintOutput struct {
	ID          string         `json:"id"`
	Function    string         `json:"function"`
	Type        string         `json:"type"`
	Flexibility string         `json:"flexibility"`
	Description string         `json:"description"`
	Reason      string         `json:"reason"`
	Examples    ExamplesOutput `json:"examples"`
}

type ViolationOutput struct {
	ConstraintType string `json:"constraint_type"`
	Explanation    string `json:"explanation"`
}

type ViolationRecordOutput struct {
	SentContent string            `json:"sent_content"`
	Violations  []ViolationOutput `json:"violations"`
}

type StoryOutput struct {
	ID               string                  `json:"id"`
	Title            string                  `json:"title"`
	Plot             string                  `json:"plot"`
	Lifecycle        string                  `json:"lifecycle"`
	Paragraphs       []string                `json:"paragraphs"`
	Constraints      []ConstraintOutput      `json:"constraints"`
	NewConstraintIDs []string                `json:"new_constraint_ids"`
	ViolationHistory []ViolationRecordOutput `json:"violation_history"`
}

type SubmitParagraphOutput struct {
	Accepted   bool              `json:"accepted"`
	Violations []ViolationOutput `json:"violations"`
	Ended      bool              `json:"ended"`
	Story      StoryOutput       `json:"story"`
}

type ContinueStoryOutput struct {
	Paragraph string      `json:"paragraph"`
	Ended     bool        `json:"ended"`
	Story     StoryOutput `json:"story"`
}

type TemplateOutput struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Plot  string `json:"plot"`
}

type ListTemplatesOutput struct {
	Templates []TemplateOutput `json:"templates"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "create_story",
		Description: "Start a new story, empty or from a template",
	}, s.handleCreateStory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "activate_story",
		Description: "Commit the title and plot of a new story and derive its first constraints",
	}, s.handleActivateStory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "submit_paragraph",
		Description: "Check a paragraph against the story's constraints and append it if it fits",
	}, s.handleSubmitParagraph)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "continue_story",
		Description: "Let the co-author write the next paragraph",
	}, s.handleContinueStory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "add_constraint",
		Description: "Derive one constraint of the requested kind from the story so far",
	}, s.handleAddConstraint)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "delete_constraint",
		Description: "Remove a constraint by id, or every constraint with a description",
	}, s.handleDeleteConstraint)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "end_story",
		Description: "Mark a story as finished",
	}, s.handleEndStory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_story",
		Description: "Return a story with its constraints and violation history",
	}, s.handleGetStory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_templates",
		Description: "List the configured story templates",
	}, s.handleListTemplates)
}

func (s *Server) handleCreateStory(ctx context.Context, req *sdk.CallToolRequest, input CreateStoryInput) (*sdk.CallToolResult, StoryOutput, error) {
	var (
		sess *story.Session
		err  error
	)
	if strings.TrimSpace(input.Template) != "" {
		sess, err = s.stories.CreateFromTemplate(ctx, input.Template)
	} else {
		sess, err = s.stories.Create(ctx, input.Title)
	}
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, storyOutputFromSession(sess), nil
}

func (s *Server) handleActivateStory(ctx context.Context, req *sdk.CallToolRequest, input ActivateStoryInput) (*sdk.CallToolResult, StoryOutput, error) {
	if input.ID == "" {
		return nil, StoryOutput{}, fmt.Errorf("id is required")
	}
	sess, err := s.stories.Activate(ctx, input.ID, input.Title, input.Plot)
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, storyOutputFromSession(sess), nil
}

func (s *Server) handleSubmitParagraph(ctx context.Context, req *sdk.CallToolRequest, input SubmitParagraphInput) (*sdk.CallToolResult, SubmitParagraphOutput, error) {
	if input.ID == "" {
		return nil, SubmitParagraphOutput{}, fmt.Errorf("id is required")
	}
	result, err := s.stories.Submit(ctx, input.ID, input.Text)
	if err != nil {
		return nil, SubmitParagraphOutput{}, err
	}
	return nil, SubmitParagraphOutput{
		Accepted:   result.Accepted,
		Violations: violationOutputs(result.Violations),
		Ended:      result.Ended,
		Story:      storyOutputFromSession(result.Session),
	}, nil
}

func (s *Server) handleContinueStory(ctx context.Context, req *sdk.CallToolRequest, input StoryIDInput) (*sdk.CallToolResult, ContinueStoryOutput, error) {
	if input.ID == "" {
		return nil, ContinueStoryOutput{}, fmt.Errorf("id is required")
	}
	result, err := s.stories.Continue(ctx, input.ID)
	if err != nil {
		return nil, ContinueStoryOutput{}, err
	}
	return nil, ContinueStoryOutput{
		Paragraph: result.Paragraph,
		Ended:     result.Ended,
		Story:     storyOutputFromSession(result.Session),
	}, nil
}

func (s *Server) handleAddConstraint(ctx context.Context, req *sdk.CallToolRequest, input AddConstraintInput) (*sdk.CallToolResult, StoryOutput, error) {
	if input.ID == "" {
		return nil, StoryOutput{}, fmt.Errorf("id is required")
	}
	structure := story.Structure{
		Function:    story.Function(input.Function),
		Type:        story.ConstraintType(input.Type),
		Flexibility: story.Flexibility(input.Flexibility),
	}
	sess, err := s.stories.AddConstraint(ctx, input.ID, structure)
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, storyOutputFromSession(sess), nil
}

func (s *Server) handleDeleteConstraint(ctx context.Context, req *sdk.CallToolRequest, input DeleteConstraintInput) (*sdk.CallToolResult, StoryOutput, error) {
	if input.ID == "" {
		return nil, StoryOutput{}, fmt.Errorf("id is required")
	}
	var (
		sess *story.Session
		err  error
	)
	switch {
	case input.ConstraintID != "":
		sess, err = s.stories.DeleteConstraint(ctx, input.ID, input.ConstraintID)
	case strings.TrimSpace(input.Description) != "":
		sess, err = s.stories.DeleteConstraintsByDescription(ctx, input.ID, input.Description)
	default:
		return nil, StoryOutput{}, fmt.Errorf("constraint_id or description is required")
	}
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, storyOutputFromSession(sess), nil
}

func (s *Server) handleEndStory(ctx context.Context, req *sdk.CallToolRequest, input StoryIDInput) (*sdk.CallToolResult, StoryOutput, error) {
	if input.ID == "" {
		return nil, StoryOutput{}, fmt.Errorf("id is required")
	}
	sess, err := s.stories.End(ctx, input.ID)
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, storyOutputFromSession(sess), nil
}

func (s *Server) handleGetStory(ctx context.Context, req *sdk.CallToolRequest, input StoryIDInput) (*sdk.CallToolResult, StoryOutput, error) {
	if input.ID == "" {
		return nil, StoryOutput{}, fmt.Errorf("id is required")
	}
	sess, err := s.stories.Get(ctx, input.ID)
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, storyOutputFromSession(sess), nil
}

func (s *Server) handleListTemplates(ctx context.Context, req *sdk.CallToolRequest, input ListTemplatesInput) (*sdk.CallToolResult, ListTemplatesOutput, error) {
	templates := s.stories.Templates()
	output := make([]TemplateOutput, 0, len(templates))
	for _, t := range templates {
		output = append(output, TemplateOutput{Name: t.Name, Title: t.Title, Plot: t.Plot})
	}
	return nil, ListTemplatesOutput{Templates: output}, nil
}

func storyOutputFromSession(sess *story.Session) StoryOutput {
	if sess == nil {
		return StoryOutput{}
	}
	out := StoryOutput{
		ID:               sess.ID,
		Title:            sess.Title,
		Plot:             sess.Plot,
		Lifecycle:        string(sess.Lifecycle),
		Paragraphs:       append([]string{}, sess.Paragraphs...),
		Constraints:      make([]ConstraintOutput, 0, len(sess.Constraints)),
		NewConstraintIDs: make([]string, 0, len(sess.NewConstraints)),
		ViolationHistory: make([]ViolationRecordOutput, 0, len(sess.ViolationHistory)),
	}
	for _, c := range sess.Constraints {
		out.Constraints = append(out.Constraints, constraintOutput(c))
	}
	for _, c := range sess.NewConstraints {
		out.NewConstraintIDs = append(out.NewConstraintIDs, c.ID)
	}
	for _, record := range sess.ViolationHistory {
		out.ViolationHistory = append(out.ViolationHistory, ViolationRecordOutput{
			SentContent: record.SentContent,
			Violations:  violationOutputs(record.Violations),
		})
	}
	return out
}

func constraintOutput(c story.Constraint) ConstraintOutput {
	return ConstraintOutput{
		ID:          c.ID,
		Function:    string(c.Function),
		Type:        string(c.Type),
		Flexibility: string(c.Flexibility),
		Description: c.Description,
		Reason:      c.Reason,
		Examples: ExamplesOutput{
			Valid:   append([]string{}, c.Examples.Valid...),
			Invalid: append([]string{}, c.Examples.Invalid...),
		},
	}
}

func violationOutputs(violations []story.Violation) []ViolationOutput {
	out := make([]ViolationOutput, 0, len(violations))
	for _, v := range violations {
		out = append(out, ViolationOutput{ConstraintType: v.ConstraintType, Explanation: v.Explanation})
	}
	return out
}

var _ StoryService = (*session.Service)(nil)
