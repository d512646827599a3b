package commands

import (
	"strings"

	"bytemomo/oarfish/internal/adapter/jsonreport"
	"bytemomo/oarfish/internal/adapter/textreport"
	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/plugin"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (a *app) newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List and run plugins",
	}
	cmd.AddCommand(a.newPluginsListCmd(), a.newPluginsRunCmd())
	return cmd
}

func (a *app) newPluginsListCmd() *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Describe every registered plugin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			descs := a.registry.DescribeAll()
			names := a.registry.Names()

			table := tablewriter.NewWriter(a.out)
			table.SetHeader([]string{"Name", "ID", "Version", "Author", "Category", "Auth", "Conn", "Dependencies", "Description"})
			table.SetAutoWrapText(false)
			table.SetRowLine(true)
			for _, name := range names {
				d := descs[name]
				desc := d.Description
				if d.Error != "" {
					desc = "error: " + d.Error
				}
				table.Append([]string{
					name, d.ID, d.Version, d.Author, string(d.Category),
					yesNo(d.RequiresAuth), yesNo(d.RequiresConnection),
					strings.Join(d.ExternalDependencies, ", "), desc,
				})
			}
			table.Render()

			if save != "" {
				if err := textreport.WriteLines(save, names); err != nil {
					return a.fail(err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "Write plugin names to this file")
	return cmd
}

func (a *app) newPluginsRunCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run one plugin against the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			p, err := a.registry.Load(name)
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}
			desc := p.Metadata()

			env := &plugin.Env{
				Database: a.v.GetString("database"),
				Username: a.v.GetString("username"),
				Password: a.v.GetString("password"),
				Confirm:  a.prompt,
				Out:      a.out,
				Log:      logrus.WithField("plugin", name),
			}
			if desc.RequiresConnection || a.v.GetString("url") != "" {
				conn, _, err := a.connect(ctx)
				switch {
				case err == nil:
					env.Target = conn.Target()
					env.Conn = conn
				case desc.RequiresConnection:
					return a.fail(err)
				default:
					a.print.Warn("Continuing without a connection: %v", err)
				}
			}

			a.print.Info("Running %s %s", a.style.Highlight(name), a.style.Faint(desc.Version))
			res := plugin.Dispatch(ctx, p, env)
			a.report(res)

			if save {
				path, err := jsonreport.New(a.outDir()).Aggregate([]domain.PluginResult{res})
				if err != nil {
					return a.fail(err)
				}
				a.print.Info("Report written to %s", path)
			}
			if res.Outcome == domain.OutcomeFailed {
				return &ExitError{Code: 1, Err: errPluginFailed(name, res.Detail)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Write assessment.json to the output directory")
	return cmd
}

func (a *app) report(res domain.PluginResult) {
	switch res.Outcome {
	case domain.OutcomeSuccess:
		a.print.Success("%s: %s", res.Plugin, res.Detail)
	case domain.OutcomeAborted:
		a.print.Warn("%s aborted: %s", res.Plugin, res.Detail)
	default:
		a.print.Error("%s failed: %s", res.Plugin, res.Detail)
	}
	for _, f := range res.Findings {
		a.print.Plain("    %s [%s] %s", a.style.Highlight(f.Title), f.Severity, a.style.Faint(f.Description))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
