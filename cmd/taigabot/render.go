package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"taigabot/internal/app"
	"taigabot/internal/config"
	"taigabot/internal/directory"
	"taigabot/internal/relay"
	"taigabot/pkg/logx"
)

var (
	renderEvent  string
	renderOutput string
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Show the messages a webhook payload would produce, without sending",
		Long: `Run a saved webhook payload through classification, recipient
resolution and formatting, then print every message with its recipient and
every skipped recipient with the reason.

Examples:
  taigabot render -c config.yaml --event payload.json
  curl ... | taigabot render -c config.yaml --event - -o json`,
		Args: cobra.NoArgs,
		RunE: runRender,
	}
	cmd.Flags().StringVarP(&renderEvent, "event", "e", "", "webhook payload file, - for stdin (required)")
	cmd.Flags().StringVarP(&renderOutput, "output", "o", "text", "output format: text, json")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

type renderedInstruction struct {
	Category string `json:"category"`
	UserID   string `json:"user_id"`
	Address  string `json:"address"`
	Text     string `json:"text"`
}

type renderedPlan struct {
	Categories   []string              `json:"categories"`
	Instructions []renderedInstruction `json:"instructions"`
	Skipped      []string              `json:"skipped,omitempty"`
	Errors       []string              `json:"errors,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return fmt.Errorf("config %s: %w", cfgPath, err)
	}
	labels, err := app.LabelsFor(cfg)
	if err != nil {
		return err
	}
	snap, err := directory.ReadFile(cfg.Users.Path)
	if err != nil {
		return err
	}
	body, err := readEvent(cmd.InOrStdin(), renderEvent)
	if err != nil {
		return err
	}
	ev, err := relay.DecodeEvent(body)
	if err != nil {
		return err
	}

	plan := relay.NewOrchestrator(labels, logx.Nop()).Plan(ev, snap)
	return writePlan(cmd.OutOrStdout(), renderOutput, toRendered(ev, plan))
}

func readEvent(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func toRendered(ev relay.Event, plan relay.Plan) renderedPlan {
	out := renderedPlan{Warnings: ev.Warnings}
	for _, c := range plan.Categories {
		out.Categories = append(out.Categories, c.String())
	}
	for _, in := range plan.Instructions {
		out.Instructions = append(out.Instructions, renderedInstruction{
			Category: in.Category.String(),
			UserID:   in.Recipient.ID,
			Address:  in.Address(),
			Text:     in.Text,
		})
	}
	for _, s := range plan.Skipped {
		out.Skipped = append(out.Skipped, s.Error())
	}
	for _, e := range plan.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	return out
}

func writePlan(w io.Writer, format string, p renderedPlan) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(p)
	case "text", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	fmt.Fprintf(w, "categories: %v\n", p.Categories)
	for _, warn := range p.Warnings {
		fmt.Fprintf(w, "payload warning: %s\n", warn)
	}
	for _, in := range p.Instructions {
		fmt.Fprintf(w, "\n--- %s -> user %s (chat %s)\n%s\n", in.Category, in.UserID, in.Address, in.Text)
	}
	if len(p.Skipped) > 0 {
		fmt.Fprintln(w)
	}
	for _, s := range p.Skipped {
		fmt.Fprintf(w, "skipped: %s\n", s)
	}
	for _, e := range p.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	return nil
}
