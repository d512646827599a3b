package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bytemomo/oarfish/internal/bruteforce"
	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/models"
	"bytemomo/oarfish/internal/modules/dictionary"
	"bytemomo/oarfish/internal/plugin"
	"bytemomo/oarfish/internal/recon"
	"bytemomo/oarfish/internal/telemetry"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Store persists task artefacts.
type Store interface {
	domain.ReportWriter
	Save(name string, v any) (string, error)
}

// TaskResult records how one profile task ended.
type TaskResult struct {
	Kind     domain.TaskKind `json:"kind"`
	Plugin   string          `json:"plugin,omitempty"`
	Status   string          `json:"status"` // completed, failed, cancelled
	Error    string          `json:"error,omitempty"`
	Artefact string          `json:"artefact,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Result is the outcome of a whole profile.
type Result struct {
	ProfileID string                `json:"profile_id"`
	StartTime time.Time             `json:"start_time"`
	EndTime   time.Time             `json:"end_time"`
	Tasks     []TaskResult          `json:"tasks"`
	Hits      []domain.Hit          `json:"hits"`
	Plugins   []domain.PluginResult `json:"plugins"`
	Logs      []string              `json:"logs,omitempty"`
}

// RunnerUC executes profile tasks one after another against one target.
type RunnerUC struct {
	Conn     domain.TargetClient
	HTTP     *http.Client
	Registry *plugin.Registry
	Store    Store
	Dumps    models.Sink
	Confirm  plugin.Confirmer
	Progress telemetry.Factory
	Limiter  *rate.Limiter
	Out      io.Writer
	Log      *logrus.Entry
	// TaskTimeout bounds each task; zero means no bound.
	TaskTimeout time.Duration
}

// Execute runs every task of p. Task failures are recorded and the run
// continues; cancellation of ctx stops it.
func (uc RunnerUC) Execute(ctx context.Context, p *domain.Profile) (*Result, error) {
	log := uc.Log
	if log == nil {
		log = logrus.WithField("profile", p.ID)
	}
	result := &Result{ProfileID: p.ID, StartTime: time.Now(), Hits: []domain.Hit{}, Plugins: []domain.PluginResult{}}

	for i, task := range p.Tasks {
		tlog := log.WithFields(logrus.Fields{"task": i, "kind": task.Kind})
		tlog.Info("Running task")

		cctx, cancel := uc.taskContext(ctx)
		start := time.Now()
		artefact, err := uc.runTask(cctx, p, task, result)
		cancel()

		tr := TaskResult{Kind: task.Kind, Plugin: task.Plugin, Status: "completed", Artefact: artefact, Duration: time.Since(start)}
		if err != nil {
			tr.Status = "failed"
			if ctx.Err() != nil {
				tr.Status = "cancelled"
			}
			tr.Error = err.Error()
			result.Logs = append(result.Logs, fmt.Sprintf("task %d (%s): %v", i, task.Kind, err))
			tlog.WithError(err).Warn("Task failed")
		}
		result.Tasks = append(result.Tasks, tr)

		if ctx.Err() != nil {
			result.EndTime = time.Now()
			return result, ctx.Err()
		}
	}

	result.EndTime = time.Now()
	if uc.Store != nil {
		if len(result.Plugins) > 0 {
			if _, err := uc.Store.Aggregate(result.Plugins); err != nil {
				log.WithError(err).Warn("could not write plugin report")
			}
		}
		if _, err := uc.Store.Save("summary", result); err != nil {
			return result, fmt.Errorf("save summary: %w", err)
		}
	}
	return result, nil
}

func (uc RunnerUC) taskContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.TaskTimeout > 0 {
		return context.WithTimeout(ctx, uc.TaskTimeout)
	}
	return context.WithCancel(ctx)
}

func (uc RunnerUC) runTask(ctx context.Context, p *domain.Profile, t *domain.Task, result *Result) (string, error) {
	switch t.Kind {
	case domain.TaskRecon:
		return uc.save("recon", recon.Run(ctx, uc.Conn, uc.HTTP))

	case domain.TaskDatabases:
		candidates, err := dictionary.BuildCandidates(dictionary.OrDefault(t.String("file"), dictionary.DefaultDatabases()))
		if err != nil {
			return "", err
		}
		report, err := bruteforce.NewDatabaseProber(uc.Conn, uc.bruteOptions()...).Run(ctx, candidates)
		if err != nil {
			return "", err
		}
		return uc.save("databases", report)

	case domain.TaskMasterBrute:
		passwords, err := dictionary.BuildCandidates(dictionary.OrDefault(t.String("passwords"), dictionary.DefaultPasswords()))
		if err != nil {
			return "", err
		}
		report, err := bruteforce.NewMasterProber(uc.Conn, uc.bruteOptions()...).Run(ctx, passwords)
		if err != nil {
			return "", err
		}
		return uc.save("master", report)

	case domain.TaskLogin:
		creds, err := dictionary.FromFiles(t.String("wordlist"), t.String("usernames"), t.String("passwords"))
		if err != nil {
			return "", err
		}
		report, err := bruteforce.NewEnumerator(uc.Conn, p.Auth.Database, uc.bruteOptions()...).Run(ctx, creds)
		result.Hits = append(result.Hits, report.Hits...)
		if err != nil {
			return "", err
		}
		return uc.save("login", report)

	case domain.TaskModels:
		if err := uc.login(ctx, p.Auth); err != nil {
			return "", err
		}
		infos, err := uc.explorer().List(ctx, t.Int("limit", 0))
		if err != nil {
			return "", err
		}
		return uc.save("models", infos)

	case domain.TaskModelsBrute:
		if err := uc.login(ctx, p.Auth); err != nil {
			return "", err
		}
		candidates, err := dictionary.BuildCandidates(dictionary.OrDefault(t.String("file"), dictionary.DefaultModels()))
		if err != nil {
			return "", err
		}
		report, err := uc.explorer().Bruteforce(ctx, candidates)
		if err != nil {
			return "", err
		}
		return uc.save("models-brute", report)

	case domain.TaskPermissions:
		if err := uc.login(ctx, p.Auth); err != nil {
			return "", err
		}
		names, err := dictionary.BuildCandidates(dictionary.ListSource(t.String("models")))
		if err != nil {
			return "", err
		}
		perms, err := uc.explorer().Permissions(ctx, names)
		if err != nil {
			return "", err
		}
		return uc.save("permissions", perms)

	case domain.TaskDump:
		if err := uc.login(ctx, p.Auth); err != nil {
			return "", err
		}
		if uc.Dumps == nil {
			return "", errors.New("no dump destination configured")
		}
		names, err := dictionary.BuildCandidates(dictionary.ListSource(t.String("models")))
		if err != nil {
			return "", err
		}
		dumps, err := uc.explorer().Dump(ctx, names, t.Int("limit", 0), uc.Dumps)
		if err != nil {
			return "", err
		}
		return uc.save("dump", dumps)

	case domain.TaskPlugin:
		if uc.Registry == nil {
			return "", errors.New("no plugin registry configured")
		}
		pl, err := uc.Registry.Load(t.Plugin)
		if err != nil {
			return "", err
		}
		env := &plugin.Env{
			Target:   uc.Conn.Target(),
			Database: p.Auth.Database,
			Username: p.Auth.Username,
			Password: p.Auth.Password,
			Conn:     uc.Conn,
			Confirm:  uc.Confirm,
			Out:      uc.Out,
		}
		res := plugin.Dispatch(ctx, pl, env)
		result.Plugins = append(result.Plugins, res)
		if res.Outcome == domain.OutcomeFailed {
			return "", fmt.Errorf("plugin %s failed: %s", t.Plugin, res.Detail)
		}
		return "", nil
	}
	return "", fmt.Errorf("unknown task kind %q", t.Kind)
}

func (uc RunnerUC) login(ctx context.Context, auth domain.AuthConfig) error {
	res := uc.Conn.Authenticate(ctx, auth.Database, auth.Username, auth.Password)
	if !res.Succeeded() {
		return fmt.Errorf("authentication as %s on %s failed: %s", auth.Username, auth.Database, res.Reason)
	}
	return nil
}

func (uc RunnerUC) explorer() *models.Explorer {
	return models.NewExplorer(uc.Conn, models.WithLimiter(uc.Limiter), models.WithProgress(uc.progress()))
}

func (uc RunnerUC) bruteOptions() []bruteforce.Option {
	return []bruteforce.Option{bruteforce.WithLimiter(uc.Limiter), bruteforce.WithProgress(uc.progress())}
}

func (uc RunnerUC) progress() telemetry.Factory {
	if uc.Progress == nil {
		return telemetry.Silent
	}
	return uc.Progress
}

func (uc RunnerUC) save(name string, v any) (string, error) {
	if uc.Store == nil {
		return "", nil
	}
	return uc.Store.Save(name, v)
}
