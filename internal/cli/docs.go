// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs.go - "vibe docs": document list, ingestion tasks and chunk inspection.
//
// Subcommands:
//   list (default)           Page through the document list
//   upload FILE              Upload a PDF and follow the ingestion stream
//   create FILE              Upload a PDF through the non-streaming endpoint
//   reingest ID              Re-ingest one document
//   reingest-all             Re-ingest every document of the user
//   describe ID TEXT         Set a document description
//   delete ID                Delete a document
//   chunks ID                Show the vector chunks of a document
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/inspect"
	"github.com/bears-chj7/studying-vibe/internal/settings"
	"github.com/bears-chj7/studying-vibe/internal/tasks"
	"github.com/bears-chj7/studying-vibe/internal/ui/progress"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
	"github.com/bears-chj7/studying-vibe/internal/upload"
	"github.com/bears-chj7/studying-vibe/internal/util"
)

// updatesBuffer is the snapshot channel size for one followed task.
const updatesBuffer = 256

// HandleDocs handles the "docs" command.
func HandleDocs(args Args) error {
	env, err := NewEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return runDocs(ctx, env, args.Raw)
}

type docsHandler func(ctx context.Context, env *Env, p *ArgParser) error

var docsHandlers = map[string]docsHandler{
	"":             docsList,
	"list":         docsList,
	"ls":           docsList,
	"upload":       docsUpload,
	"create":       docsCreate,
	"reingest":     docsReingest,
	"reingest-all": docsReingestAll,
	"describe":     docsDescribe,
	"delete":       docsDelete,
	"rm":           docsDelete,
	"chunks":       docsChunks,
}

func runDocs(ctx context.Context, env *Env, raw []string) error {
	p := NewArgParser(raw, "plain")

	handler, ok := docsHandlers[p.Subcommand()]
	if !ok {
		return unknownSubcommand("docs", p.Subcommand(), subcommandNames(docsHandlers)...)
	}
	if err := env.requireUser(); err != nil {
		return err
	}
	return handler(ctx, env, p)
}

// =============================================================================
// LIST
// =============================================================================

func docsList(ctx context.Context, env *Env, p *ArgParser) error {
	limit, hasLimit, err := p.FlagInt("limit")
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	page, hasPage, err := p.FlagInt("page")
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	view := env.Documents
	if hasLimit {
		err = view.SetLimit(ctx, limit)
	} else {
		err = view.Refresh(ctx)
	}
	if err != nil {
		return err
	}
	if hasPage && page != 1 {
		if err := view.SetPage(ctx, page); err != nil {
			return err
		}
	}

	snap := view.Snapshot()
	if env.JSON {
		return NewJSONResponse("docs list", newDocumentListData(snap)).Write(env.Out)
	}

	if len(snap.Documents) == 0 {
		fmt.Fprintln(env.Out, styles.Muted.Render("No documents."))
		return nil
	}
	fmt.Fprint(env.Out, renderDocumentTable(snap.Documents, env.width()))
	fmt.Fprintln(env.Out, styles.Muted.Render(snap.Pagination.String()))
	return nil
}

// =============================================================================
// STREAMED INGESTION
// =============================================================================

// ingestSettings loads the saved settings and applies --chunk-size and
// --chunk-overlap for this run only.
func ingestSettings(env *Env, p *ArgParser) (settings.IngestSettings, error) {
	s := env.Settings.Load()

	size, ok, err := p.FlagInt("chunk-size")
	if err != nil {
		return s, &UsageError{Message: err.Error()}
	}
	if ok {
		s.ChunkSize = size
	}

	overlap, ok, err := p.FlagInt("chunk-overlap")
	if err != nil {
		return s, &UsageError{Message: err.Error()}
	}
	if ok {
		s.ChunkOverlap = overlap
	}

	if err := s.Validate(); err != nil {
		return s, backend.NewInvalidRequest(err.Error())
	}
	return s, nil
}

func docsUpload(ctx context.Context, env *Env, p *ArgParser) error {
	path, err := requirePositional(p, 1, "FILE")
	if err != nil {
		return &UsageError{Message: err.Error() + " (usage: vibe docs upload FILE)"}
	}
	s, err := ingestSettings(env, p)
	if err != nil {
		return err
	}
	file, err := upload.Open(path)
	if err != nil {
		return err
	}
	log.Debug().Str("file", file.Name).Int("pages", file.Pages).Int("bytes", file.Size()).Msg("prepared upload")

	return followTask(ctx, env, "docs upload", p.BoolFlag("plain"), func(ctx context.Context) (*tasks.Task, error) {
		return env.Tasks.SubmitUpload(ctx, file, s)
	})
}

func docsReingest(ctx context.Context, env *Env, p *ArgParser) error {
	id, err := requirePositional(p, 1, "document ID")
	if err != nil {
		return &UsageError{Message: err.Error() + " (usage: vibe docs reingest ID)"}
	}
	s, err := ingestSettings(env, p)
	if err != nil {
		return err
	}
	return followTask(ctx, env, "docs reingest", p.BoolFlag("plain"), func(ctx context.Context) (*tasks.Task, error) {
		return env.Tasks.SubmitReingest(ctx, id, s)
	})
}

func docsReingestAll(ctx context.Context, env *Env, p *ArgParser) error {
	s, err := ingestSettings(env, p)
	if err != nil {
		return err
	}
	return followTask(ctx, env, "docs reingest-all", p.BoolFlag("plain"), func(ctx context.Context) (*tasks.Task, error) {
		return env.Tasks.SubmitReingestAll(ctx, s)
	})
}

// followTask submits a task and shows its progress until it settles.
// The updates channel is subscribed before submission so no snapshot is missed.
func followTask(ctx context.Context, env *Env, command string, plain bool, submit func(context.Context) (*tasks.Task, error)) error {
	updates, unsubscribe := env.Tasks.Updates(updatesBuffer)
	defer unsubscribe()

	task, err := submit(ctx)
	if err != nil {
		return err
	}
	cancel := func() { env.Tasks.Cancel(task.ID) }

	var final tasks.Snapshot
	switch {
	case env.JSON:
		final, err = task.Wait(ctx)
	case env.Interactive && !plain:
		final, err = progress.Run(ctx, task, updates, cancel)
	default:
		final, err = progress.Plain(ctx, env.Out, task, updates)
	}
	if err != nil {
		// Interrupted: the task is canceled and keeps its log.
		cancel()
		final, _ = task.Wait(context.Background())
		if !env.JSON {
			fmt.Fprintln(env.Out, styles.RenderError(final.TerminalMessage))
		}
	}

	if env.JSON {
		resp := NewJSONResponse(command, newTaskData(final))
		resp.Success = final.State == tasks.StateSucceeded
		if err := resp.Write(env.Out); err != nil {
			return err
		}
	}

	if final.State != tasks.StateSucceeded {
		return &TaskFailedError{Snapshot: final}
	}
	return nil
}

// =============================================================================
// NON-STREAMED MUTATIONS
// =============================================================================

func docsCreate(ctx context.Context, env *Env, p *ArgParser) error {
	path, err := requirePositional(p, 1, "FILE")
	if err != nil {
		return &UsageError{Message: err.Error() + " (usage: vibe docs create FILE [--description TEXT])"}
	}
	s, err := ingestSettings(env, p)
	if err != nil {
		return err
	}
	file, err := upload.Open(path)
	if err != nil {
		return err
	}

	message, err := env.Documents.Create(ctx, file.UploadFile(), s.Params(), p.Flag("description"))
	if err != nil {
		return err
	}
	return env.report("docs create", message, map[string]string{"file": file.Name, "message": message})
}

func docsDescribe(ctx context.Context, env *Env, p *ArgParser) error {
	id, err := requirePositional(p, 1, "document ID")
	if err != nil {
		return &UsageError{Message: err.Error() + " (usage: vibe docs describe ID TEXT)"}
	}
	description := strings.Join(p.PositionalFrom(2), " ")

	if err := env.Documents.Update(ctx, id, description); err != nil {
		return err
	}
	return env.report("docs describe", "Updated description of document "+id,
		map[string]string{"id": id, "description": description})
}

func docsDelete(ctx context.Context, env *Env, p *ArgParser) error {
	id, err := requirePositional(p, 1, "document ID")
	if err != nil {
		return &UsageError{Message: err.Error() + " (usage: vibe docs delete ID)"}
	}
	if err := env.Documents.Delete(ctx, id); err != nil {
		return err
	}
	return env.report("docs delete", "Deleted document "+id, map[string]string{"id": id})
}

// =============================================================================
// CHUNKS
// =============================================================================

func docsChunks(ctx context.Context, env *Env, p *ArgParser) error {
	id, err := requirePositional(p, 1, "document ID")
	if err != nil {
		return &UsageError{Message: err.Error() + " (usage: vibe docs chunks ID)"}
	}

	viewer := inspect.NewViewer(env.Client, env.Config.Server.Username)
	defer viewer.Close()

	view := viewer.Open(ctx, backend.Document{ID: id})
	if view.Err != nil {
		return view.Err
	}
	data := ChunkListData{DocumentID: id, Chunks: view.Chunks}

	if out := p.Flag("out"); out != "" {
		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		if err := util.AtomicWriteFile(out, append(encoded, '\n'), 0644); err != nil {
			return err
		}
		return env.report("docs chunks", fmt.Sprintf("Wrote %d chunks to %s", len(view.Chunks), out),
			map[string]any{"document_id": id, "count": len(view.Chunks), "path": out})
	}

	if env.JSON {
		return NewJSONResponse("docs chunks", data).Write(env.Out)
	}

	if len(view.Chunks) == 0 {
		fmt.Fprintln(env.Out, styles.Muted.Render("No chunks stored for document "+id+"."))
		return nil
	}
	fmt.Fprint(env.Out, renderChunks(view.Chunks, env.width()))
	fmt.Fprintln(env.Out, styles.Muted.Render(fmt.Sprintf("%d chunks", len(view.Chunks))))
	return nil
}
