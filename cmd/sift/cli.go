package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/sift/internal/console"
	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/ops"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/triage"
	"github.com/hpungsan/sift/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "sift",
		Usage:   "Triage raw notes into informations, ideas and tasks",
		Version: Version,
		Commands: []*cli.Command{
			inboxCmd(rt),
			processCmd(rt),
			listCmd(rt),
			deleteCmd(rt),
			linkCmd(rt),
			planCmd(rt),
			suggestCmd(rt),
			exportCmd(rt),
			serveCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// pageFlags are shared by the list commands. Flags carry parse state, so
// each command gets fresh ones.
func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum rows"},
		&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
		formatFlag(),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "Output format: table|json"}
}

// inboxCmd groups the queue commands.
func inboxCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "Manage queued notes",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Queue a note (text from args, or piped via stdin)",
				ArgsUsage: "[text...]",
				Action: func(c *cli.Context) error {
					text := strings.Join(c.Args().Slice(), " ")
					if text == "" && !console.IsTerminal(c.App.Reader) {
						data, err := io.ReadAll(c.App.Reader)
						if err != nil {
							return outputError(errors.NewInternal(err))
						}
						text = string(data)
					}
					item, err := ops.InboxAdd(c.Context, rt.db, ops.InboxAddInput{RawText: text})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, item)
				},
			},
			{
				Name:  "list",
				Usage: "List queued notes oldest first",
				Flags: pageFlags(),
				Action: func(c *cli.Context) error {
					format, err := parseFormat(c.String("format"))
					if err != nil {
						return outputError(err)
					}
					out, err := ops.InboxList(c.Context, rt.db, ops.InboxListInput{
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					if format == "json" {
						return outputJSON(c.App.Writer, out)
					}
					tw := newTable(c.App.Writer)
					tw.AppendHeader(table.Row{"ID", "Note", "Queued"})
					for _, item := range out.Items {
						tw.AppendRow(table.Row{item.ID, item.RawText, formatTime(item.CreatedAt)})
					}
					tw.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d", len(out.Items), out.Pagination.Total), ""})
					tw.Render()
					return nil
				},
			},
			{
				Name:  "count",
				Usage: "Print the number of queued notes",
				Action: func(c *cli.Context) error {
					out, err := ops.InboxCount(c.Context, rt.db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
			{
				Name:      "remove",
				Usage:     "Drop a queued note without triaging it",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					out, err := ops.InboxRemove(c.Context, rt.db, ops.InboxRemoveInput{ID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
			{
				Name:      "import",
				Usage:     "Queue notes from a .txt (one per line) or .jsonl file",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					out, err := ops.Import(c.Context, rt.db, rt.cfg, ops.ImportInput{Path: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					if err := outputJSON(c.App.Writer, out); err != nil {
						return err
					}
					if len(out.Errors) > 0 {
						return cli.Exit(fmt.Sprintf("[%s] %d lines rejected, nothing imported", errors.ErrInvalidRequest, len(out.Errors)), 1)
					}
					return nil
				},
			},
		},
	}
}

// processCmd runs the interactive review over the inbox.
func processCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Review the oldest note, or every note with --all",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Keep going until the inbox is empty or a note is not saved"},
			&cli.BoolFlag{Name: "retry-all", Usage: "With --all, attempt every queued note once"},
			&cli.IntFlag{Name: "max-iterations", Aliases: []string{"n"}, Usage: "Proposer rounds per note (default from config)"},
			&cli.StringFlag{Name: "approver", Usage: "Reply classifier: rules|llm (default from config)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "Report format: text|json"},
		},
		Action: func(c *cli.Context) error {
			cfg := *rt.cfg
			if c.IsSet("max-iterations") {
				n := c.Int("max-iterations")
				if n < 1 {
					return outputError(errors.NewInvalidRequest("max-iterations must be at least 1"))
				}
				cfg.MaxIterations = n
			}
			if c.IsSet("approver") {
				cfg.Approver = c.String("approver")
			}
			if c.Bool("retry-all") {
				cfg.RetryAll = true
			}

			loop, err := rt.loop(&cfg)
			if err != nil {
				return outputError(err)
			}
			orch := triage.New(db.NewInbox(rt.db), db.NewRecords(rt.db), loop,
				console.NewReviewer(c.App.Reader, c.App.Writer),
				triage.WithLogger(rt.logger),
				triage.WithRecorder(rt.metrics),
				triage.WithLinkSiblings(cfg.AutoLinkEnabled()),
				triage.WithRetryAll(cfg.RetryAll),
			)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			var reports []triage.Report
			if c.Bool("all") || c.Bool("retry-all") {
				reports, err = orch.Drain(ctx)
			} else {
				var rep *triage.Report
				rep, err = orch.RunOnce(ctx)
				if rep != nil {
					reports = []triage.Report{*rep}
				}
			}

			if c.String("format") == "json" {
				if jerr := outputJSON(c.App.Writer, reports); jerr != nil {
					return jerr
				}
			} else {
				console.PrintReports(c.App.Writer, reports)
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// listCmd creates the list command.
func listCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List records of one kind: inbox, information, idea, task, plan",
		ArgsUsage: "<kind>",
		Flags:     pageFlags(),
		Action: func(c *cli.Context) error {
			format, err := parseFormat(c.String("format"))
			if err != nil {
				return outputError(err)
			}
			out, err := ops.List(c.Context, rt.db, ops.ListInput{
				Kind:   c.Args().First(),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			if format == "json" {
				return outputJSON(c.App.Writer, out)
			}
			renderRecords(c.App.Writer, out)
			return nil
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a record; deleting a plan deletes its tasks",
		ArgsUsage: "<kind> <id>",
		Action: func(c *cli.Context) error {
			out, err := ops.Delete(c.Context, rt.db, ops.DeleteInput{
				Kind: c.Args().Get(0),
				ID:   c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// linkCmd creates the link command.
func linkCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Link an information to an idea or a task",
		ArgsUsage: "<information-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "idea", Usage: "Idea id"},
			&cli.StringFlag{Name: "task", Usage: "Task id"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Link(c.Context, rt.db, ops.LinkInput{
				InformationID: c.Args().First(),
				IdeaID:        c.String("idea"),
				TaskID:        c.String("task"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// planCmd groups plan commands.
func planCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Group an idea with its tasks",
		Subcommands: []*cli.Command{
			{
				Name:      "compose",
				Usage:     fmt.Sprintf("Create a plan from an idea and at least %d tasks", record.MinPlanTasks),
				ArgsUsage: "<task-id> <task-id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "idea", Required: true, Usage: "Idea id"},
				},
				Action: func(c *cli.Context) error {
					plan, err := ops.ComposePlan(c.Context, rt.db, ops.ComposePlanInput{
						IdeaID:  c.String("idea"),
						TaskIDs: c.Args().Slice(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, plan)
				},
			},
		},
	}
}

// suggestCmd groups the suggestion commands.
func suggestCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Suggest tasks connecting an information to ideas",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "Show suggestions for one information",
				ArgsUsage: "<information-id>",
				Flags:     []cli.Flag{formatFlag()},
				Action: func(c *cli.Context) error {
					format, err := parseFormat(c.String("format"))
					if err != nil {
						return outputError(err)
					}
					out, err := ops.Suggest(c.Context, rt.db, rt.prompts, ops.SuggestInput{InformationID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					if format == "json" {
						return outputJSON(c.App.Writer, out)
					}
					tw := newTable(c.App.Writer)
					tw.SetTitle(out.Information.Content)
					tw.AppendHeader(table.Row{"Idea ID", "Idea", "Shared", "Suggested task"})
					for _, s := range out.Suggestions {
						tw.AppendRow(table.Row{s.IdeaID, s.IdeaContent, strings.Join(s.SharedTerms, ", "), s.TaskContent})
					}
					tw.Render()
					return nil
				},
			},
			{
				Name:      "accept",
				Usage:     "Store the suggested task for one idea",
				ArgsUsage: "<information-id> <idea-id>",
				Action: func(c *cli.Context) error {
					out, err := ops.AcceptSuggestion(c.Context, rt.db, rt.prompts, ops.AcceptSuggestionInput{
						InformationID: c.Args().Get(0),
						IdeaID:        c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the inbox and every record to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output .jsonl path (default: ~/.sift/exports/sift-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Export(c.Context, rt.db, rt.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// serveCmd starts the web UI.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI and /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8787, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(rt.db, rt.cfg, web.Deps{
				Suggestions: rt.prompts,
				Metrics:     rt.metrics,
				Logger:      rt.logger,
			}, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, rt.logger)
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func parseFormat(s string) (string, error) {
	switch s {
	case "", "table":
		return "table", nil
	case "json":
		return "json", nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want table or json)", s))
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

// renderRecords prints one kind as a table, plans with their tasks nested.
func renderRecords(w io.Writer, out *ops.ListOutput) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Content", "Details"})
	for _, rec := range out.Items {
		tw.AppendRow(table.Row{rec.RecordID(), rec.DisplayContent(), rec.DisplayDetails()})
		if plan, ok := rec.(record.Plan); ok {
			for i, task := range plan.Tasks {
				tw.AppendRow(table.Row{"", fmt.Sprintf("  %d. %s", i+1, task.Content), task.ID})
			}
		}
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d %s", len(out.Items), out.Pagination.Total, out.Kind), ""})
	tw.Render()
}
