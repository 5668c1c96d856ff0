// Package historypg provides deterministic conversation-history processing
// for Go, with PostgreSQL persistence.
//
// HistoryPG keeps long-running tool-use conversations inside a model's
// context window without calling a model to do it. It is opinionated
// (PostgreSQL + pgx), deterministic, and built around two pure passes over
// a session's log:
//
//   - Retry reconciliation: once a tool call succeeds, the failed attempts
//     and their retry prompts are noise. Reconciliation removes them.
//   - Lifespan compaction: each tool gets a policy saying how many messages
//     its output stays relevant for. Once a tool return is older than its
//     lifespan, an edit function truncates or drops it.
//
// Both passes are pure: same log in, same log out, no model calls, no
// clock reads that change behavior, input never mutated.
//
// # Quick Start
//
// Create a History with a store and a policy table:
//
//	pool, _ := pgxpool.New(ctx, connString)
//	store := storage.NewPostgresStore(pool)
//	_ = store.EnsureSchema(ctx)
//
//	history, err := historypg.New(historypg.Config{
//	    Store: store,
//	    Policies: compaction.Policies{
//	        "web_search": {
//	            Edit:     compaction.NewTruncateEditor(compaction.DefaultPlaceholder, 500),
//	            Lifespan: 3,
//	        },
//	        "read_file": {
//	            Edit:             compaction.NewDropEditor(),
//	            LifespanFraction: 0.5,
//	        },
//	    },
//	})
//
// Record a conversation and process it:
//
//	sessionID, _ := history.CreateSession(ctx, "user-123", nil)
//	_ = history.Append(ctx, sessionID,
//	    historypg.NewRequest(sessionID, historypg.NewTextPart("Find the docs")),
//	)
//	result, _ := history.Process(ctx, sessionID)
//
// # Edit Policies
//
// A policy pairs an edit function with a lifespan. Lifespans are absolute
// message counts or fractions of the log length, resolved once per pass.
// Editors compose from the builtins: NewTruncateEditor replaces old tool
// returns with a placeholder, NewDropEditor removes the tool's parts
// entirely, NewHeadEditor keeps the first N bytes, NewStripHTMLEditor and
// NewFlattenMarkdownEditor shrink markup-heavy output. Any
// func(types.Part) (types.Part, bool) works as a custom editor.
//
// # Pure Processing
//
// Storage is optional. ProcessMessages runs both passes on an in-memory
// log:
//
//	processed, result := history.ProcessMessages(messages)
//
// The compaction package can also be used on its own, without a History.
//
// # Persistence
//
// Session logs live in PostgreSQL. Processing replaces the stored log, logs
// an audit event, and optionally archives dropped messages, all in one
// transaction. PostgresStore runs on pgxpool; SQLStore runs on database/sql
// with lib/pq.
//
// # Sending to the API
//
// A processed log converts directly to Anthropic message params:
//
//	params := historypg.ToAnthropicMessages(processed)
//
// # Hooks
//
// Observability hooks fire around processing:
//
//	history.OnAfterProcess(func(ctx context.Context, sessionID string, result *compaction.Result) error {
//	    log.Printf("compacted %s: %d -> %d messages", sessionID, result.OriginalMessages, result.FinalMessages)
//	    return nil
//	})
//
// # Background Processing
//
// The maintenance package runs processing on a schedule instead of per
// request. A Sweeper finds sessions whose logs grew past a threshold and
// processes each one:
//
//	sweeper := maintenance.NewSweeper(store, history, nil)
//	_ = sweeper.Start(ctx)
//	defer sweeper.Stop(ctx)
package historypg
