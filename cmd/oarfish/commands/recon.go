package commands

import (
	"strings"

	"bytemomo/oarfish/internal/adapter/jsonreport"
	"bytemomo/oarfish/internal/recon"

	"github.com/spf13/cobra"
)

func (a *app) newReconCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "recon",
		Short: "Fingerprint the target: version, databases, signup pages and public apps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			conn, _, err := a.connect(ctx)
			if err != nil {
				return a.fail(err)
			}

			report := recon.Run(ctx, conn, conn.HTTPClient())

			if len(report.Databases) == 0 {
				a.print.Warn("Database listing is disabled or empty")
			} else {
				a.print.Success("Databases: %s", a.style.Highlight(strings.Join(report.Databases, ", ")))
			}

			if len(report.Signup) == 0 {
				a.print.Info("No signup page found")
			}
			for _, page := range report.Signup {
				if page.Form {
					a.print.Success("Open registration form at %s", page.URL)
				} else {
					a.print.Info("Signup route answers at %s (no form)", page.URL)
				}
			}

			if report.Apps != nil {
				if report.Apps.LoginTitle != "" {
					a.print.Info("Login page title: %s", report.Apps.LoginTitle)
				}
				for _, p := range report.Apps.Paths {
					switch {
					case p.Available():
						a.print.Success("%s is reachable", p.Path)
					case p.Error != "":
						a.print.Plain("%s", a.style.Faint(p.Path+": "+p.Error))
					}
				}
			}

			if save {
				path, err := jsonreport.New(a.outDir()).Save("recon", report)
				if err != nil {
					return a.fail(err)
				}
				a.print.Info("Report written to %s", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Write recon.json to the output directory")
	return cmd
}
