// Package engine drives one extraction run: it pulls pages of documents
// from the fetch collaborator, flattens them, and hands the result to the
// materializer. Pages and documents are processed strictly in order so
// surrogate keys are reproducible across runs with the same input.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tidwall/gjson"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/flatten"
	"github.com/openlibdata/ldx/internal/materialize"
	"github.com/openlibdata/ldx/internal/names"
	"github.com/openlibdata/ldx/internal/schema"
)

// Source produces the documents of one query, page by page. An empty page
// signals end of stream.
type Source interface {
	Total() (int, bool)
	Next(ctx context.Context) ([]gjson.Result, error)
}

// Options configure one extraction run.
type Options struct {
	Logger logger.Logger

	// Driver is the target database.
	Driver internal.Driver

	// Table is the caller-supplied label. It names the shadow JSON table;
	// flattened tables derive from it with the _j suffix.
	Table string

	// Transform controls whether documents are flattened in addition to
	// being stored in the shadow JSON table.
	Transform bool

	// BatchSize is the materializer batch size.
	BatchSize int

	// DryRun logs the would-be tables instead of touching the database.
	DryRun bool

	// Progress, when set, is called after every document with the running
	// count and the total if known (zero otherwise).
	Progress func(processed int, total int)
}

// Result reports what an extraction run produced. On a fetch failure the
// result still describes the documents processed and tables committed
// before the failure.
type Result struct {
	RunID     string
	Tables    []string
	Processed int
}

// Run executes one extraction. The whole stream is flattened before any
// table is written (two-pass materialization), so a fetch failure mid-stream
// materializes the documents received so far and then propagates the error.
func Run(ctx context.Context, opts Options, src Source) (*Result, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("table label is required")
	}
	runID := uuid.New().String()
	log := opts.Logger.WithPrefix(fmt.Sprintf("[run:%s]", runID[:8]))

	alloc := names.New(opts.Driver.MaxIdentifierLength())
	// the shadow JSON table is subject to the same sanitization and length
	// limits as the flattened tables derived from the label
	shadowName, err := alloc.Table(opts.Table, nil)
	if err != nil {
		return nil, err
	}
	var flattener *flatten.Flattener
	var shadow *schema.Table
	var seq int64
	if opts.Transform {
		flattener, err = flatten.New(opts.Table+"_j", shadowName, alloc)
		if err != nil {
			return nil, err
		}
	} else {
		shadow = schema.NewRawTable(shadowName)
	}

	mat := materialize.New(materialize.Options{
		Logger:    log,
		Driver:    opts.Driver,
		BatchSize: opts.BatchSize,
		DryRun:    opts.DryRun,
	})

	total, _ := src.Total()
	result := &Result{RunID: runID}
	var fetchErr error
	for {
		if err := ctx.Err(); err != nil {
			fetchErr = err
			break
		}
		docs, err := src.Next(ctx)
		if err != nil {
			fetchErr = err
			break
		}
		if len(docs) == 0 {
			break
		}
		for _, doc := range docs {
			if opts.Transform {
				rs, err := flattener.Flatten(doc)
				if err != nil {
					return result, err
				}
				mat.Add(rs)
			} else {
				seq++
				mat.AddRow(&flatten.Row{Table: shadow, Values: map[string]any{
					names.ID: seq,
					"jsonb":  json.RawMessage(doc.Raw),
				}})
			}
			result.Processed++
			if opts.Progress != nil {
				opts.Progress(result.Processed, total)
			}
		}
	}
	if fetchErr != nil {
		log.Warn("fetch stopped after %d documents: %s", result.Processed, fetchErr)
	}

	tables := []*schema.Table{shadow}
	if opts.Transform {
		tables = flattener.Tables()
	}
	log.Debug("flattened %d documents into %d pending rows", result.Processed, mat.Pending())
	created, err := mat.Load(ctx, tables)
	result.Tables = created
	if err != nil {
		return result, err
	}
	if fetchErr != nil {
		return result, fetchErr
	}
	log.Info("created tables: %v", result.Tables)
	return result, nil
}
