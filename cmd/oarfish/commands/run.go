package commands

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bytemomo/oarfish/internal/adapter/csvreport"
	"bytemomo/oarfish/internal/adapter/jsonreport"
	"bytemomo/oarfish/internal/adapter/yamlconfig"
	"bytemomo/oarfish/internal/bruteforce"
	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/usecase"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (a *app) newRunCmd() *cobra.Command {
	var profilePath string
	var taskTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an engagement profile task by task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if profilePath == "" {
				return a.fail(&ExitError{Code: 1, Err: errors.New("--profile is required")})
			}
			profile, err := yamlconfig.LoadProfile(profilePath)
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}

			t, err := domain.NewTarget(profile.Target.URL, profile.Target.VerifyTLS || a.v.GetBool("verify_tls"))
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}
			timeout := profile.Runtime.Timeout
			if timeout <= 0 {
				timeout = a.v.GetDuration("timeout")
			}
			tlsParams, err := a.tlsParams(profile.Target.TLS)
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}
			conn, _, err := a.connectTo(ctx, t, timeout, tlsParams)
			if err != nil {
				return a.fail(err)
			}

			outDir := profile.Runtime.OutDir
			if outDir == "" {
				outDir = a.outDir()
			}
			store := jsonreport.New(filepath.Join(outDir, profileDir(profile.ID)))
			limiter := a.limiter()
			if profile.Runtime.Rate > 0 {
				limiter = bruteforce.NewLimiter(profile.Runtime.Rate)
			}

			uc := usecase.RunnerUC{
				Conn:        conn,
				HTTP:        conn.HTTPClient(),
				Registry:    a.registry,
				Store:       store,
				Dumps:       store,
				Confirm:     a.prompt,
				Progress:    a.progress(),
				Limiter:     limiter,
				Out:         a.out,
				Log:         logrus.WithFields(logrus.Fields{"profile": profile.ID, "run_id": store.RunID}),
				TaskTimeout: taskTimeout,
			}
			a.print.Info("Running profile %s (%d tasks) against %s", profile.ID, len(profile.Tasks), conn.Target())
			result, runErr := uc.Execute(ctx, profile)
			if result != nil {
				a.summarise(result)
				for _, res := range result.Plugins {
					a.report(res)
				}
				if len(result.Hits) > 0 && a.prompt.Confirm("Save the valid credentials to CSV?") {
					path, err := csvreport.WriteHits(store.OutDir, result.Hits, time.Now())
					if err != nil {
						return a.fail(err)
					}
					a.print.Info("Credentials written to %s", path)
				}
			}
			if runErr != nil {
				return a.fail(runErr)
			}
			a.print.Success("Results written to %s", store.OutDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Engagement profile (YAML)")
	cmd.Flags().DurationVar(&taskTimeout, "task-timeout", 0, "Upper bound for each task (0 = none)")
	return cmd
}

func (a *app) summarise(result *usecase.Result) {
	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"#", "Task", "Status", "Duration", "Artefact / Error"})
	table.SetAutoWrapText(false)
	for i, t := range result.Tasks {
		kind := string(t.Kind)
		if t.Plugin != "" {
			kind += " " + t.Plugin
		}
		detail := t.Artefact
		if t.Error != "" {
			detail = t.Error
		}
		table.Append([]string{strconv.Itoa(i + 1), kind, t.Status, t.Duration.Round(time.Millisecond).String(), detail})
	}
	table.Render()
}

// profileDir turns a profile id, which defaults to the profile path, into a
// directory name.
func profileDir(id string) string {
	base := filepath.Base(id)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
