package models

import (
	"context"
	"errors"
	"fmt"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/modules/dictionary"
	"bytemomo/oarfish/internal/target"
	"bytemomo/oarfish/internal/telemetry"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultDumpLimit caps records fetched per model when no limit is given.
const DefaultDumpLimit = 100

// Operations are the access rights checked by Permissions, in display order.
var Operations = []string{"read", "write", "create", "unlink"}

// Info is one row of the ir.model table.
type Info struct {
	Model string `json:"model"`
	Name  string `json:"name"`
}

// Access is the result of probing one model name.
type Access struct {
	Model    string `json:"model"`
	Readable bool   `json:"readable"`
}

// BruteReport summarises a model-name run.
type BruteReport struct {
	Probed int      `json:"probed"`
	Errors int      `json:"errors"`
	Found  []Access `json:"found"`
}

// Permission is the access matrix of one model for the current user.
type Permission struct {
	Model  string          `json:"model"`
	Rights map[string]bool `json:"rights"`
	Error  string          `json:"error,omitempty"`
}

// Sink stores dumped records.
type Sink interface {
	SaveRecords(model string, records []map[string]any) (string, error)
}

// Dump is the outcome of dumping one model.
type Dump struct {
	Model   string `json:"model"`
	Records int    `json:"records"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Explorer runs model operations through an authenticated connection.
type Explorer struct {
	conn     domain.ObjectCaller
	limiter  *rate.Limiter
	progress telemetry.Factory
	log      *logrus.Entry
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithLimiter throttles model probes.
func WithLimiter(l *rate.Limiter) Option {
	return func(e *Explorer) { e.limiter = l }
}

// WithProgress replaces the live display used by Bruteforce.
func WithProgress(f telemetry.Factory) Option {
	return func(e *Explorer) { e.progress = f }
}

// NewExplorer builds an Explorer.
func NewExplorer(conn domain.ObjectCaller, opts ...Option) *Explorer {
	e := &Explorer{
		conn:     conn,
		progress: telemetry.Live,
		log:      logrus.WithField("module", "models"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.progress == nil {
		e.progress = telemetry.Silent
	}
	return e
}

// List reads model names from ir.model. limit <= 0 means no limit.
func (e *Explorer) List(ctx context.Context, limit int) ([]Info, error) {
	kwargs := map[string]any{"fields": []string{"model", "name"}}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	reply, err := e.conn.Call(ctx, "ir.model", "search_read", []any{[]any{}}, kwargs)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	records := target.AsRecords(reply)
	out := make([]Info, 0, len(records))
	for _, rec := range records {
		out = append(out, Info{Model: target.AsString(rec["model"]), Name: target.AsString(rec["name"])})
	}
	return out, nil
}

// Bruteforce probes candidate model names with a non-raising read check.
// Models the server reports as missing are skipped; anything else that
// answers exists.
func (e *Explorer) Bruteforce(ctx context.Context, candidates []string) (BruteReport, error) {
	report := BruteReport{Found: []Access{}}
	if len(candidates) == 0 {
		return report, dictionary.ErrNoCandidates
	}

	progress := e.progress("models", len(candidates))
	defer progress.Finalize()

	for _, model := range candidates {
		if err := e.wait(ctx); err != nil {
			return report, err
		}
		readable, err := e.checkAccess(ctx, model, "read")
		report.Probed++
		progress.RecordAttempt(model)

		switch {
		case err == nil:
			report.Found = append(report.Found, Access{Model: model, Readable: readable})
			progress.RecordSuccess(fmt.Sprintf("%s (readable: %t)", model, readable))
		case target.IsMissingModel(err):
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return report, err
		default:
			var remote *target.RemoteError
			if errors.As(err, &remote) {
				// The server knows the model but refused the check.
				report.Found = append(report.Found, Access{Model: model})
				progress.RecordSuccess(fmt.Sprintf("%s (exists, check refused)", model))
				continue
			}
			report.Errors++
			progress.RecordError(fmt.Sprintf("%s: %v", model, err))
		}
	}
	return report, nil
}

// Permissions checks every operation in Operations for each model.
func (e *Explorer) Permissions(ctx context.Context, models []string) ([]Permission, error) {
	out := make([]Permission, 0, len(models))
	for _, model := range models {
		perm := Permission{Model: model, Rights: make(map[string]bool, len(Operations))}
		for _, op := range Operations {
			if err := e.wait(ctx); err != nil {
				return out, err
			}
			allowed, err := e.checkAccess(ctx, model, op)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				perm.Error = err.Error()
				e.log.WithError(err).WithField("model", model).Debug("access check failed")
				break
			}
			perm.Rights[op] = allowed
		}
		out = append(out, perm)
	}
	return out, nil
}

// Dump fetches up to limit records of each model and hands them to sink.
// A failing model does not stop the others.
func (e *Explorer) Dump(ctx context.Context, models []string, limit int, sink Sink) ([]Dump, error) {
	if limit <= 0 {
		limit = DefaultDumpLimit
	}
	out := make([]Dump, 0, len(models))
	for _, model := range models {
		if err := e.wait(ctx); err != nil {
			return out, err
		}
		d := Dump{Model: model}
		reply, err := e.conn.Call(ctx, model, "search_read", []any{[]any{}}, map[string]any{"limit": limit})
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			d.Error = err.Error()
			out = append(out, d)
			e.log.WithError(err).WithField("model", model).Warn("dump failed")
			continue
		}

		records := target.AsRecords(reply)
		d.Records = len(records)
		if d.Path, err = sink.SaveRecords(model, records); err != nil {
			d.Error = err.Error()
		}
		out = append(out, d)
		e.log.WithFields(logrus.Fields{"model": model, "records": d.Records, "path": d.Path}).Info("Model dumped")
	}
	return out, nil
}

func (e *Explorer) checkAccess(ctx context.Context, model, op string) (bool, error) {
	reply, err := e.conn.Call(ctx, model, "check_access_rights", []any{op}, map[string]any{"raise_exception": false})
	if err != nil {
		return false, err
	}
	return target.AsBool(reply), nil
}

func (e *Explorer) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}
