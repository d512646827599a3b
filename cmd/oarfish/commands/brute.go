package commands

import (
	"errors"
	"strings"
	"time"

	"bytemomo/oarfish/internal/adapter/csvreport"
	"bytemomo/oarfish/internal/adapter/textreport"
	"bytemomo/oarfish/internal/bruteforce"
	"bytemomo/oarfish/internal/modules/dictionary"

	"github.com/spf13/cobra"
)

func (a *app) newBruteCmd() *cobra.Command {
	var usernames, passwords, wordlist string
	cmd := &cobra.Command{
		Use:   "brute",
		Short: "Enumerate credentials against one database",
		Long: `Tries every candidate credential against the database given with --database.
A --wordlist of user:password lines takes precedence over --usernames and
--passwords; without any of them the embedded default lists are crossed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database := a.v.GetString("database")
			if database == "" {
				return a.fail(&ExitError{Code: 1, Err: errors.New("--database is required")})
			}
			creds, err := dictionary.FromFiles(wordlist, usernames, passwords)
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}

			conn, _, err := a.connect(ctx)
			if err != nil {
				return a.fail(err)
			}

			a.print.Info("Trying %d credentials against %s", len(creds), a.style.Highlight(database))
			report, err := bruteforce.NewEnumerator(conn, database,
				bruteforce.WithLimiter(a.limiter()),
				bruteforce.WithProgress(a.progress()),
			).Run(ctx, creds)
			if err != nil {
				return a.fail(err)
			}

			if !report.Found() {
				a.print.Warn("No valid credentials found (%d attempts, %d errors)", report.Attempts, report.Errors)
				return nil
			}
			for _, hit := range report.Hits {
				a.print.Success("%s:%s (uid %d)", hit.Credential.Username, a.style.Highlight(hit.Credential.Password), hit.UID)
			}
			if a.prompt.Confirm("Save the valid credentials to CSV?") {
				path, err := csvreport.WriteHits(a.outDir(), report.Hits, time.Now())
				if err != nil {
					return a.fail(err)
				}
				a.print.Info("Credentials written to %s", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&usernames, "usernames", "", "File of usernames, one per line")
	cmd.Flags().StringVar(&passwords, "passwords", "", "File of passwords, one per line")
	cmd.Flags().StringVarP(&wordlist, "wordlist", "w", "", "File of user:password lines")
	return cmd
}

func (a *app) newDBNamesCmd() *cobra.Command {
	var file, save string
	cmd := &cobra.Command{
		Use:     "dbnames",
		Aliases: []string{"databases"},
		Short:   "Find existing databases by name when listing is disabled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			candidates, err := dictionary.BuildCandidates(dictionary.OrDefault(file, dictionary.DefaultDatabases()))
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}

			conn, _, err := a.connect(ctx)
			if err != nil {
				return a.fail(err)
			}

			if listed := conn.ListDatabases(ctx); len(listed) > 0 {
				a.print.Info("Database listing is enabled: %s", strings.Join(listed, ", "))
			}

			report, err := bruteforce.NewDatabaseProber(conn,
				bruteforce.WithLimiter(a.limiter()),
				bruteforce.WithProgress(a.progress()),
			).Run(ctx, candidates)
			if err != nil {
				return a.fail(err)
			}

			if len(report.Found) == 0 {
				a.print.Warn("No database found among %d candidates", report.Probed)
				return nil
			}
			for _, db := range report.Found {
				a.print.Success("Database %s exists", a.style.Highlight(db))
			}
			if save != "" {
				if err := textreport.WriteLines(save, report.Found); err != nil {
					return a.fail(err)
				}
				a.print.Info("Database names written to %s", save)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File of candidate database names (default: embedded list)")
	cmd.Flags().StringVar(&save, "save", "", "Write found database names to this file")
	return cmd
}

func (a *app) newMasterBruteCmd() *cobra.Command {
	var wordlist, save string
	cmd := &cobra.Command{
		Use:     "brute-master",
		Aliases: []string{"master"},
		Short:   "Guess the database manager master password",
		Long: `Tries candidate master passwords against the database manager. Each attempt
asks for a backup of a randomly named database that does not exist, so no
real database is read or changed. Without --wordlist the embedded default
passwords are used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			passwords, err := dictionary.BuildCandidates(dictionary.OrDefault(wordlist, dictionary.DefaultPasswords()))
			if err != nil {
				return a.fail(&ExitError{Code: 1, Err: err})
			}

			conn, _, err := a.connect(ctx)
			if err != nil {
				return a.fail(err)
			}

			a.print.Info("Trying %d master passwords", len(passwords))
			report, err := bruteforce.NewMasterProber(conn,
				bruteforce.WithLimiter(a.limiter()),
				bruteforce.WithProgress(a.progress()),
			).Run(ctx, passwords)
			if err != nil {
				return a.fail(err)
			}

			if !report.Found {
				a.print.Warn("Master password not found (%d attempts, %d errors)", report.Attempts, report.Errors)
				return nil
			}
			a.print.Success("Master password: %s", a.style.Highlight(report.Password))
			if save != "" {
				if err := textreport.WriteLines(save, []string{report.Password}); err != nil {
					return a.fail(err)
				}
				a.print.Info("Master password written to %s", save)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&wordlist, "wordlist", "w", "", "File of candidate master passwords, one per line")
	cmd.Flags().StringVar(&save, "save", "", "Write the master password to this file")
	return cmd
}
