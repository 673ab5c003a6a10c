// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - "vibe ask": send one message to the backend chat model.
//
// Command: ask [question]
//
// Examples:
//   vibe ask "What do my uploaded reports say about Q3?"
//   vibe ask --model gemini "Summarize the onboarding guide"
//   echo "List the open issues" | vibe ask
//
// Flags:
//   -m, --model NAME    Use this model instead of the saved one
//   --raw               Print the answer without markdown rendering
//   --json              Output response as JSON
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/bears-chj7/studying-vibe/internal/settings"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
)

// maxQuestionSize bounds a question read from stdin.
const maxQuestionSize = 64 * 1024

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	env, err := NewEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var in io.Reader
	if !IsTTY() {
		in = os.Stdin
	}
	return runAsk(ctx, env, args.Raw, in)
}

// runAsk reads the question from the arguments, or from in when there are none.
func runAsk(ctx context.Context, env *Env, raw []string, in io.Reader) error {
	p := NewArgParser(raw, "raw")

	question := strings.TrimSpace(strings.Join(p.PositionalFrom(0), " "))
	if question == "" && in != nil {
		data, err := io.ReadAll(io.LimitReader(in, maxQuestionSize))
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if question == "" {
		return usageErrorf("no question provided (usage: vibe ask \"your question\")")
	}

	model := env.Settings.Model()
	if override := p.FlagOrDefault("model", p.Flag("m")); override != "" {
		model = strings.ToLower(strings.TrimSpace(override))
		if !settings.IsKnownModel(model) {
			return usageErrorf("unknown model %q (known: %s)", model, strings.Join(settings.KnownModels, ", "))
		}
	}

	if deadline := env.Config.Server.StreamDeadline(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	start := time.Now()
	answer, err := env.Client.Chat(ctx, question, model)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	log.Debug().Str("model", model).Dur("duration", duration).Int("chars", len(answer)).Msg("chat answered")

	if env.JSON {
		return NewJSONResponse("ask", AskData{
			Question:   question,
			Model:      model,
			Response:   answer,
			DurationMs: duration.Milliseconds(),
		}).Write(env.Out)
	}

	if strings.TrimSpace(answer) == "" {
		fmt.Fprintln(env.Out, styles.RenderWarning(model+" returned an empty answer"))
		return nil
	}

	if env.Interactive && !p.BoolFlag("raw") {
		fmt.Fprint(env.Out, renderMarkdown(answer, env.width()))
		return nil
	}
	fmt.Fprintln(env.Out, strings.TrimRight(answer, "\n"))
	return nil
}

// renderMarkdown renders an answer for the terminal. It falls back to the
// plain text when glamour cannot render it.
func renderMarkdown(content string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Debug().Err(err).Msg("markdown renderer unavailable")
		return content + "\n"
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		log.Debug().Err(err).Msg("failed to render markdown")
		return content + "\n"
	}
	return rendered
}
