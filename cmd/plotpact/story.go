package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"plotpact/internal/ingest"
	"plotpact/internal/session"
	"plotpact/internal/story"
)

func storyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Create and write stories from the CLI",
	}
	cmd.AddCommand(storyNewCmd())
	cmd.AddCommand(storyActivateCmd())
	cmd.AddCommand(storySubmitCmd())
	cmd.AddCommand(storyContinueCmd())
	cmd.AddCommand(storyShowCmd())
	cmd.AddCommand(storyListCmd())
	cmd.AddCommand(storyImportCmd())
	cmd.AddCommand(storyEndCmd())
	cmd.AddCommand(storyDeleteCmd())
	cmd.AddCommand(constraintCmd())
	return cmd
}

// withApp opens the app, runs fn and closes the app again.
func withApp(withOracle bool, fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := openApp(ctx, withOracle)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

func storyNewCmd() *cobra.Command {
	var title string
	var template string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a story, empty or from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(template != "", func(ctx context.Context, a *app) error {
				var sess *story.Session
				var err error
				if template != "" {
					sess, err = a.stories.CreateFromTemplate(ctx, template)
				} else {
					sess, err = a.stories.Create(ctx, title)
				}
				if err != nil {
					return err
				}
				printSession(os.Stdout, sess)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Story title")
	cmd.Flags().StringVar(&template, "template", "", "Start from a configured template")
	return cmd
}

func storyActivateCmd() *cobra.Command {
	var title string
	var plot string
	cmd := &cobra.Command{
		Use:   "activate <id>",
		Short: "Commit the plot of a new story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(plot) == "" {
				return fmt.Errorf("--plot is required")
			}
			return withApp(true, func(ctx context.Context, a *app) error {
				sess, err := a.stories.Activate(ctx, args[0], title, plot)
				if err != nil {
					return err
				}
				printSession(os.Stdout, sess)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Story title, if not given at creation")
	cmd.Flags().StringVar(&plot, "plot", "", "Premise of the story")
	return cmd
}

func storySubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id> <text>",
		Short: "Submit a paragraph for verification",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return withApp(true, func(ctx context.Context, a *app) error {
				result, err := a.stories.Submit(ctx, args[0], text)
				if err != nil {
					return err
				}
				printSubmitResult(os.Stdout, result)
				return nil
			})
		},
	}
}

func storyContinueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "continue <id>",
		Short: "Let the co-author write the next paragraph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app) error {
				result, err := a.stories.Continue(ctx, args[0])
				if err != nil {
					return err
				}
				if result.Paragraph == "" {
					fmt.Fprintln(os.Stdout, "The co-author had nothing to add.")
					return nil
				}
				fmt.Fprintln(os.Stdout, result.Paragraph)
				if result.Ended {
					fmt.Fprintln(os.Stdout, "\nThe story has ended.")
				}
				return nil
			})
		},
	}
}

func storyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a story with its constraints and violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, a *app) error {
				sess, err := a.stories.Get(ctx, args[0])
				if err != nil {
					return err
				}
				printSession(os.Stdout, sess)
				return nil
			})
		},
	}
}

func storyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live stories, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, a *app) error {
				summaries, err := a.stories.List(ctx)
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					fmt.Fprintln(os.Stdout, "No stories found.")
					return nil
				}
				for _, s := range summaries {
					fmt.Fprintf(os.Stdout, "%s  %-15s %3d  %s (expires %s)\n",
						s.ID, s.Lifecycle, s.Paragraphs, s.Title, s.ExpiresAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func storyImportCmd() *cobra.Command {
	var exclude []string
	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Create stories from markdown files or directories of them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app) error {
				result, err := ingest.Run(ctx, args, a.stories, ingest.Options{Exclude: exclude})
				if err != nil {
					return err
				}

				fmt.Fprintln(os.Stdout, "Import complete.")
				for _, item := range result.Imported {
					fmt.Fprintf(os.Stdout, "  %s -> %s\n", item.SourceFile, item.SessionID)
				}
				fmt.Fprintf(os.Stdout, "  Files skipped: %d\n", result.FilesSkipped)

				if len(result.Errors) > 0 {
					fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
					for _, item := range result.Errors {
						fmt.Fprintf(os.Stdout, "  - %v\n", item)
					}
					return fmt.Errorf("import completed with errors")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Paths to skip")
	return cmd
}

func storyEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end <id>",
		Short: "Mark a story as finished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, a *app) error {
				if _, err := a.stories.End(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, "Story ended.")
				return nil
			})
		},
	}
}

func storyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, a *app) error {
				return a.stories.Delete(ctx, args[0])
			})
		},
	}
}

func constraintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "constraint",
		Short: "Add or remove story constraints",
	}
	cmd.AddCommand(constraintAddCmd())
	cmd.AddCommand(constraintDeleteCmd())
	return cmd
}

func constraintAddCmd() *cobra.Command {
	var function, constraintType, flexibility string
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Derive one constraint of the given kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			structure := story.Structure{
				Function:    story.Function(function),
				Type:        story.ConstraintType(constraintType),
				Flexibility: story.Flexibility(flexibility),
			}
			if err := structure.Validate(); err != nil {
				return err
			}
			return withApp(true, func(ctx context.Context, a *app) error {
				sess, err := a.stories.AddConstraint(ctx, args[0], structure)
				if err != nil {
					return err
				}
				if len(sess.NewConstraints) == 0 {
					fmt.Fprintln(os.Stdout, "No new constraint was derived.")
					return nil
				}
				printConstraints(os.Stdout, sess.NewConstraints)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&function, "function", string(story.FunctionFocusing), "focusing or exclusionary")
	cmd.Flags().StringVar(&constraintType, "type", string(story.TypeChannel), "channel or anchor")
	cmd.Flags().StringVar(&flexibility, "flexibility", string(story.FlexibilityFlexible), "fixed, faux-fixed, or flexible")
	return cmd
}

func constraintDeleteCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "delete <id> [constraint-id]",
		Short: "Remove a constraint by id, or every constraint with --description",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && strings.TrimSpace(description) == "" {
				return fmt.Errorf("a constraint id or --description is required")
			}
			return withApp(false, func(ctx context.Context, a *app) error {
				var sess *story.Session
				var err error
				if len(args) == 2 {
					sess, err = a.stories.DeleteConstraint(ctx, args[0], args[1])
				} else {
					sess, err = a.stories.DeleteConstraintsByDescription(ctx, args[0], description)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%d constraints remain.\n", len(sess.Constraints))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Remove every constraint with this description")
	return cmd
}

func printSession(out io.Writer, sess *story.Session) {
	fmt.Fprintf(out, "%s  %s [%s]\n", sess.ID, sess.Title, sess.Lifecycle)
	if sess.Plot != "" {
		fmt.Fprintf(out, "\n%s\n", sess.Plot)
	}
	for i, p := range sess.Paragraphs {
		fmt.Fprintf(out, "\n[%d] %s\n", i+1, p)
	}
	if len(sess.Constraints) > 0 {
		fmt.Fprintf(out, "\nConstraints (%d, %d new):\n", len(sess.Constraints), len(sess.NewConstraints))
		printConstraints(out, sess.Constraints)
	}
	if len(sess.ViolationHistory) > 0 {
		fmt.Fprintf(out, "\nRejected submissions (%d):\n", len(sess.ViolationHistory))
		for _, record := range sess.ViolationHistory {
			fmt.Fprintf(out, "  %q\n", record.SentContent)
			printViolations(out, record.Violations)
		}
	}
}

func printConstraints(out io.Writer, constraints []story.Constraint) {
	for _, c := range constraints {
		fmt.Fprintf(out, "  - %s  %s\n", c.ID, c.Label())
	}
}

func printViolations(out io.Writer, violations []story.Violation) {
	for _, v := range violations {
		fmt.Fprintf(out, "    - %s: %s\n", v.ConstraintType, v.Explanation)
	}
}

func printSubmitResult(out io.Writer, result session.SubmitResult) {
	if !result.Accepted {
		fmt.Fprintf(out, "Rejected (%d violations):\n", len(result.Violations))
		printViolations(out, result.Violations)
		return
	}
	fmt.Fprintf(out, "Accepted as paragraph %d.\n", len(result.Session.Paragraphs))
	if len(result.Session.NewConstraints) > 0 {
		fmt.Fprintln(out, "New constraints:")
		printConstraints(out, result.Session.NewConstraints)
	}
	if result.Ended {
		fmt.Fprintln(out, "The story has ended.")
	}
}
