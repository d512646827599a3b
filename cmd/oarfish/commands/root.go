package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"bytemomo/oarfish/internal/adapter/logger"
	"bytemomo/oarfish/internal/bruteforce"
	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/plugin"
	"bytemomo/oarfish/internal/target"
	"bytemomo/oarfish/internal/telemetry"
	"bytemomo/oarfish/internal/transport"
	"bytemomo/oarfish/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// Version is the program version shown by --version and the banner.
const Version = "1.0.0"

var errNotOdoo = errors.New("target does not appear to be running Odoo")

// ExitError carries a specific process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// app holds what every subcommand shares.
type app struct {
	v        *viper.Viper
	registry *plugin.Registry
	out      io.Writer
	style    ui.Style
	print    *ui.Printer
	prompt   *ui.Prompt
	bindErr  error
}

// NewRootCommand builds the CLI on the default plugin registry.
func NewRootCommand() *cobra.Command {
	return newRootCommand(plugin.Default)
}

func newRootCommand(registry *plugin.Registry) *cobra.Command {
	a := &app{v: viper.New(), registry: registry}

	root := &cobra.Command{
		Use:   "oarfish",
		Short: "oarfish - Odoo security assessment toolkit",
		Long: `oarfish probes Odoo servers over their XML-RPC interface: it fingerprints the
version, enumerates databases, credentials and models, dumps records and runs
exploit plugins behind an explicit operator confirmation.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("url", "u", "", "Target URL (https:// is assumed when no scheme is given)")
	pf.StringP("database", "D", "", "Database name")
	pf.StringP("username", "U", "", "Username")
	pf.StringP("password", "P", "", "Password")
	pf.Bool("verify-tls", false, "Verify the target's TLS certificate")
	pf.String("tls-server-name", "", "Server name sent in the TLS handshake and verified in the certificate")
	pf.String("tls-min-version", "", "Lowest TLS version to negotiate (1.0 to 1.3, default 1.2)")
	pf.Duration("timeout", transport.DefaultTimeout, "Per-request timeout")
	pf.Float64("rate", 0, "Maximum attempts per second (0 = unlimited)")
	pf.StringP("out-dir", "o", ".", "Directory for results")
	pf.BoolP("yes", "y", false, "Answer yes to every confirmation prompt")
	pf.String("log-level", "warn", "Logging level (debug, info, warn, error)")
	pf.String("log-file", "", "Also append logs to this file")
	pf.Bool("log-json", false, "Use JSON log format")
	pf.String("config", "", "Configuration file path")
	pf.Bool("no-color", false, "Disable colored output")
	pf.Bool("no-banner", false, "Do not print the banner")

	a.bindErr = bindFlags(a.v, pf, []string{
		"url", "database", "username", "password", "verify-tls", "tls-server-name", "tls-min-version", "timeout", "rate", "out-dir", "yes",
		"log-level", "log-file", "log-json", "config", "no-color", "no-banner",
	})

	root.AddCommand(
		a.newReconCmd(),
		a.newDBNamesCmd(),
		a.newBruteCmd(),
		a.newMasterBruteCmd(),
		a.newModelsCmd(),
		a.newDumpCmd(),
		a.newPluginsCmd(),
		a.newRunCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.bindErr != nil {
		cmd.PrintErrln("Error:", a.bindErr)
		return a.bindErr
	}
	if err := a.loadConfig(); err != nil {
		cmd.PrintErrln("Error:", err)
		return err
	}
	logger.SetLoggerToStructured(logger.ParseLevel(a.v.GetString("log_level")), a.v.GetString("log_file"), a.v.GetBool("log_json"))

	a.style = ui.AutoStyle(a.v.GetBool("no_color"))
	a.out = cmd.OutOrStdout()
	a.print = &ui.Printer{Out: a.out, Style: a.style}
	a.prompt = ui.NewPrompt(cmd.InOrStdin(), a.out, a.style)
	a.prompt.AssumeYes = a.v.GetBool("yes")

	if !a.v.GetBool("no_banner") {
		ui.Banner(a.out, a.style, Version)
	}
	return nil
}

// bindFlags binds each named flag under its snake_case key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, names []string) error {
	var errs []error
	for _, name := range names {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), fs.Lookup(name)); err != nil {
			errs = append(errs, fmt.Errorf("bind flag %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// loadConfig reads the optional config file and OARFISH_* variables.
func (a *app) loadConfig() error {
	a.v.SetEnvPrefix("OARFISH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if configFile := a.v.GetString("config"); configFile != "" {
		a.v.SetConfigFile(configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func (a *app) limiter() *rate.Limiter {
	return bruteforce.NewLimiter(a.v.GetFloat64("rate"))
}

func (a *app) progress() telemetry.Factory {
	return func(title string, total int) telemetry.Recorder {
		opts := []telemetry.Option{telemetry.WithTitle(title), telemetry.WithOutput(a.out)}
		if !a.style.Colored() {
			opts = append(opts, telemetry.WithoutColor())
		}
		return telemetry.New(total, opts...)
	}
}

func (a *app) outDir() string {
	if dir := a.v.GetString("out_dir"); dir != "" {
		return dir
	}
	return "."
}

// connect builds a connection and checks the target answers like Odoo. When
// only the base URL answers, the operator decides whether to switch to it.
func (a *app) connect(ctx context.Context) (*target.Connection, *domain.VersionInfo, error) {
	t, err := domain.NewTarget(a.v.GetString("url"), a.v.GetBool("verify_tls"))
	if err != nil {
		return nil, nil, &ExitError{Code: 1, Err: err}
	}
	tlsParams, err := a.tlsParams(nil)
	if err != nil {
		return nil, nil, &ExitError{Code: 1, Err: err}
	}
	return a.connectTo(ctx, t, a.v.GetDuration("timeout"), tlsParams)
}

// tlsParams overlays the --tls-* flags on base.
func (a *app) tlsParams(base map[string]any) (map[string]any, error) {
	params := map[string]any{}
	for k, v := range base {
		params[k] = v
	}
	if name := a.v.GetString("tls_server_name"); name != "" {
		params[transport.TLSServerName] = name
	}
	if version := a.v.GetString("tls_min_version"); version != "" {
		params[transport.TLSMinVersion] = version
	}
	if err := transport.CheckTLSParams(params); err != nil {
		return nil, err
	}
	return params, nil
}

func (a *app) connectTo(ctx context.Context, t domain.Target, timeout time.Duration, tlsParams map[string]any) (*target.Connection, *domain.VersionInfo, error) {
	conn := target.New(t, target.WithTimeout(timeout), target.WithTLSParams(tlsParams))
	if info := conn.ProbeVersion(ctx); info != nil {
		a.print.Success("Odoo %s detected at %s", info.ServerVersion, t)
		return conn, info, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if base, differs := t.Base(); differs {
		baseConn := target.New(base, target.WithTimeout(timeout), target.WithTLSParams(tlsParams))
		if info := baseConn.ProbeVersion(ctx); info != nil {
			a.print.Warn("No Odoo answer at %s, but Odoo %s answers at %s", t, info.ServerVersion, base)
			if a.prompt.Confirm("Use the base URL instead?") {
				return baseConn, info, nil
			}
		}
	}
	return nil, nil, errNotOdoo
}

// login authenticates with the global credential flags.
func (a *app) login(ctx context.Context, conn *target.Connection) (domain.Session, error) {
	db, user, pass := a.v.GetString("database"), a.v.GetString("username"), a.v.GetString("password")
	if db == "" || user == "" || pass == "" {
		return domain.Session{}, &ExitError{Code: 1, Err: errors.New("--database, --username and --password are required")}
	}
	res := conn.Authenticate(ctx, db, user, pass)
	if !res.Succeeded() {
		return domain.Session{}, fmt.Errorf("authentication as %s on %s failed: %s", user, db, res.Reason)
	}
	sess, _ := conn.Session()
	a.print.Success("Authenticated as %s (uid %d) on %s", user, sess.UID, db)
	return sess, nil
}

// fail prints err for the operator and returns it for the exit status.
func (a *app) fail(err error) error {
	if err != nil && a.print != nil {
		a.print.Error("%v", err)
	}
	return err
}

func errPluginFailed(name, detail string) error {
	return fmt.Errorf("plugin %s failed: %s", name, detail)
}
