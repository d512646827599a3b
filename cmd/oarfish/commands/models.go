package commands

import (
	"errors"
	"strconv"

	"bytemomo/oarfish/internal/adapter/jsonreport"
	"bytemomo/oarfish/internal/adapter/textreport"
	"bytemomo/oarfish/internal/models"
	"bytemomo/oarfish/internal/modules/dictionary"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (a *app) newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Enumerate models and access rights (requires credentials)",
	}
	cmd.AddCommand(a.newModelsListCmd(), a.newModelsBruteCmd(), a.newModelsPermsCmd())
	return cmd
}

// explorer connects, logs in and returns an Explorer bound to the session.
func (a *app) explorer(cmd *cobra.Command) (*models.Explorer, error) {
	ctx := cmd.Context()
	conn, _, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := a.login(ctx, conn); err != nil {
		return nil, err
	}
	return models.NewExplorer(conn, models.WithLimiter(a.limiter()), models.WithProgress(a.progress())), nil
}

func (a *app) newModelsListCmd() *cobra.Command {
	var limit int
	var save string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models from ir.model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ex, err := a.explorer(cmd)
			if err != nil {
				return a.fail(err)
			}
			infos, err := ex.List(cmd.Context(), limit)
			if err != nil {
				return a.fail(err)
			}

			names := make([]string, 0, len(infos))
			for _, info := range infos {
				a.print.Plain("%-40s %s", info.Model, a.style.Faint(info.Name))
				names = append(names, info.Model)
			}
			a.print.Success("%d models", len(infos))

			if save != "" {
				if err := textreport.WriteLines(save, names); err != nil {
					return a.fail(err)
				}
				a.print.Info("Model names written to %s", save)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum number of models (0 = all)")
	cmd.Flags().StringVar(&save, "save", "", "Write model names to this file")
	return cmd
}

func (a *app) newModelsBruteCmd() *cobra.Command {
	var file, save string
	cmd := &cobra.Command{
		Use:   "brute",
		Short: "Probe model names with a non-raising access check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			candidates, err := dictionary.BuildCandidates(dictionary.OrDefault(file, dictionary.DefaultModels()))
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}
			ex, err := a.explorer(cmd)
			if err != nil {
				return a.fail(err)
			}
			report, err := ex.Bruteforce(cmd.Context(), candidates)
			if err != nil {
				return a.fail(err)
			}

			found := make([]string, 0, len(report.Found))
			for _, acc := range report.Found {
				found = append(found, acc.Model)
			}
			a.print.Success("%d of %d candidate models exist", len(report.Found), report.Probed)

			if save != "" {
				if err := textreport.WriteLines(save, found); err != nil {
					return a.fail(err)
				}
				a.print.Info("Model names written to %s", save)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File of candidate model names (default: embedded list)")
	cmd.Flags().StringVar(&save, "save", "", "Write existing model names to this file")
	return cmd
}

func (a *app) newModelsPermsCmd() *cobra.Command {
	var list string
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Show the read/write/create/unlink matrix for models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list == "" {
				return a.fail(&ExitError{Code: 1, Err: errors.New("--models is required")})
			}
			names, err := dictionary.BuildCandidates(dictionary.ListSource(list))
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}
			ex, err := a.explorer(cmd)
			if err != nil {
				return a.fail(err)
			}
			perms, err := ex.Permissions(cmd.Context(), names)
			if err != nil {
				return a.fail(err)
			}

			table := tablewriter.NewWriter(a.out)
			header := append([]string{"Model"}, models.Operations...)
			table.SetHeader(append(header, "Error"))
			table.SetAutoWrapText(false)
			for _, p := range perms {
				row := []string{p.Model}
				for _, op := range models.Operations {
					if allowed, ok := p.Rights[op]; ok {
						row = append(row, strconv.FormatBool(allowed))
					} else {
						row = append(row, "-")
					}
				}
				table.Append(append(row, p.Error))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&list, "models", "m", "", "Comma separated model names or a file of them")
	return cmd
}

func (a *app) newDumpCmd() *cobra.Command {
	var list string
	var limit int
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump records of models to <model>.json files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list == "" {
				return a.fail(&ExitError{Code: 1, Err: errors.New("--models is required")})
			}
			names, err := dictionary.BuildCandidates(dictionary.ListSource(list))
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}
			ex, err := a.explorer(cmd)
			if err != nil {
				return a.fail(err)
			}
			dumps, err := ex.Dump(cmd.Context(), names, limit, jsonreport.New(a.outDir()))
			if err != nil {
				return a.fail(err)
			}
			for _, d := range dumps {
				if d.Error != "" {
					a.print.Error("%s: %s", d.Model, d.Error)
					continue
				}
				a.print.Success("%s: %d records written to %s", d.Model, d.Records, d.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&list, "models", "m", "", "Comma separated model names or a file of them")
	cmd.Flags().IntVarP(&limit, "limit", "l", models.DefaultDumpLimit, "Maximum records per model")
	return cmd
}
