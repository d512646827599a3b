package plugin

import (
	"context"
	"fmt"

	"bytemomo/oarfish/internal/domain"

	"github.com/sirupsen/logrus"
)

// Dispatch checks the declared requirements and runs p. It never panics
// and always returns a terminal outcome.
func Dispatch(ctx context.Context, p Plugin, env *Env) (res domain.PluginResult) {
	name := "unknown"
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithFields(logrus.Fields{"plugin": name, "panic": rec}).Error("plugin panicked")
			res = domain.Failed(name, "plugin panicked: %v", rec)
		}
		if res.Plugin == "" {
			res.Plugin = name
		}
		if res.Outcome == "" {
			res.Outcome = domain.OutcomeFailed
		}
	}()

	desc := p.Metadata()
	if desc.ID != "" {
		name = desc.ID
	} else if desc.Name != "" {
		name = desc.Name
	}
	if env.Log == nil {
		env.Log = logrus.WithField("plugin", name)
	}

	if err := CheckRequirements(desc, env); err != nil {
		return domain.Failed(name, "%v", err)
	}
	if v, ok := p.(Validator); ok {
		if err := v.Validate(env); err != nil {
			return domain.Failed(name, "precondition failed: %v", err)
		}
	}

	env.Log.Info("Running plugin")
	return p.Run(ctx, env)
}

// CheckRequirements compares the declared requirements with env.
func CheckRequirements(desc domain.Descriptor, env *Env) error {
	if desc.RequiresConnection && env.Conn == nil {
		return fmt.Errorf("plugin requires a target connection")
	}
	if desc.RequiresAuth && !env.HasCredentials() {
		return fmt.Errorf("plugin requires authentication (database, username and password)")
	}
	return nil
}

// RunExploit drives x through check, confirmation, exploit and cleanup.
func RunExploit(ctx context.Context, name string, x Exploit, env *Env) domain.PluginResult {
	log := env.Log
	if log == nil {
		log = logrus.WithField("plugin", name)
	}

	status, detail, err := safeCheck(ctx, x, env)
	if err != nil {
		return domain.Failed(name, "check failed: %v", err)
	}
	log.WithField("status", status.String()).Info("Check finished")

	var question string
	switch status {
	case domain.NotVulnerable:
		return domain.Failed(name, "target is not vulnerable: %s", detail)
	case domain.Vulnerable:
		question = fmt.Sprintf("Target appears vulnerable (%s). Run the exploit?", detail)
	default:
		question = fmt.Sprintf("Vulnerability status is unknown (%s). Run the exploit anyway?", detail)
	}

	if env.Confirm == nil || !env.Confirm.Confirm(question) {
		return domain.PluginResult{Plugin: name, Outcome: domain.OutcomeAborted, Detail: "exploit declined by operator"}
	}

	exploitDetail, exploitErr := safeExploit(ctx, x, env)
	cleanupErr := safeCleanup(ctx, x, env)
	if cleanupErr != nil {
		log.WithError(cleanupErr).Warn("cleanup failed")
	}

	switch {
	case exploitErr != nil && cleanupErr != nil:
		return domain.Failed(name, "exploit failed: %v; cleanup failed: %v", exploitErr, cleanupErr)
	case exploitErr != nil:
		return domain.Failed(name, "exploit failed: %v", exploitErr)
	case cleanupErr != nil:
		return domain.Failed(name, "exploit succeeded (%s) but cleanup failed: %v", exploitDetail, cleanupErr)
	}
	return domain.PluginResult{Plugin: name, Outcome: domain.OutcomeSuccess, Detail: exploitDetail}
}

func safeCheck(ctx context.Context, x Exploit, env *Env) (status domain.VulnerabilityStatus, detail string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return x.Check(ctx, env)
}

func safeExploit(ctx context.Context, x Exploit, env *Env) (detail string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return x.Exploit(ctx, env)
}

func safeCleanup(ctx context.Context, x Exploit, env *Env) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return x.Cleanup(ctx, env)
}
