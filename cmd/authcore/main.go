// Command authcore inspects permission masks, role hierarchies and
// policy files offline.
//
//	authcore mask encode VIEW EDIT
//	authcore mask decode 0x0005
//	authcore expand --policy brokerage.yaml COMPANY_ADMIN
//	authcore check --policy brokerage.yaml
//	authcore lint --ttl 30m --no-device-binding
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/brokerdesk/authcore"
	"github.com/brokerdesk/authcore/permission"
	"github.com/brokerdesk/authcore/policy"
)

const usage = `usage: authcore <command> [flags] [args]

commands:
  mask encode ACTION...   encode action names as a 0x mask
  mask decode MASK        list the actions in a mask
  expand ROLE...          list the roles implied by ROLE
  check                   compile a policy file and list its operations
  lint                    report weak engine settings
`

// errUsage marks errors that should print the usage text.
var errUsage = errors.New("invalid usage")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	os.Exit(run(os.Args[1:], os.Stdout, logger))
}

func run(args []string, out io.Writer, logger *slog.Logger) int {
	err := dispatch(args, out)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(out, usage)
		logger.Error("authcore: invalid usage", "error", err)
		return 2
	case errors.Is(err, errFindings):
		return 1
	default:
		logger.Error("authcore: command failed", "error", err)
		return 1
	}
}

func dispatch(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	switch args[0] {
	case "mask":
		return runMask(args[1:], out)
	case "expand":
		return runExpand(args[1:], out)
	case "check":
		return runCheck(args[1:], out)
	case "lint":
		return runLint(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func runMask(args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: mask needs encode or decode and arguments", errUsage)
	}
	table := permission.Canonical()
	switch args[0] {
	case "encode":
		names := splitList(args[1:])
		m, err := table.EncodeNames(names)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, permission.FormatMask(m))
		return nil
	case "decode":
		if len(args) != 2 {
			return fmt.Errorf("%w: mask decode takes one mask", errUsage)
		}
		m, err := permission.DecodeMask(args[1])
		if err != nil {
			return err
		}
		actions := table.Actions(m)
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		fmt.Fprintln(out, strings.Join(names, ","))
		return nil
	default:
		return fmt.Errorf("%w: unknown mask subcommand %q", errUsage, args[0])
	}
}

func runExpand(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("expand", pflag.ContinueOnError)
	fs.SetOutput(out)
	policyPath := fs.String("policy", "", "policy file supplying the hierarchy (default: platform hierarchy)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: expand needs at least one role", errUsage)
	}

	hierarchy := permission.DefaultHierarchy()
	if *policyPath != "" {
		compiled, err := compilePolicy(*policyPath)
		if err != nil {
			return err
		}
		hierarchy = compiled.Hierarchy
	}

	roles := make([]permission.Role, 0, fs.NArg())
	for _, name := range splitList(fs.Args()) {
		roles = append(roles, permission.ParseRole(name))
	}
	expanded, err := hierarchy.ExpandAll(roles)
	if err != nil {
		return err
	}
	for _, r := range expanded {
		fmt.Fprintln(out, r)
	}
	return nil
}

func runCheck(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.SetOutput(out)
	policyPath := fs.StringP("policy", "p", "", "policy file to compile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *policyPath == "" {
		return fmt.Errorf("%w: --policy is required", errUsage)
	}

	compiled, err := compilePolicy(*policyPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "issuer: %s\n", compiled.Issuer)
	fmt.Fprintf(out, "hierarchy: %s\n", joinRoles(compiled.Hierarchy.Roles()))
	fmt.Fprintf(out, "role grants: %d\n", compiled.Roles.Count())
	fmt.Fprintf(out, "privilege grants: %d\n", compiled.Privileges.Count())
	fmt.Fprintf(out, "conditions: %s\n", strings.Join(compiled.Vocabulary.Keys(), ","))
	for _, op := range compiled.Operations {
		mode := "any"
		if op.RequireAll {
			mode = "all"
		}
		required := make([]string, len(op.Required))
		for i, r := range op.Required {
			required[i] = r.String()
		}
		fmt.Fprintf(out, "operation %s: %s of [%s] sensitivity=%s",
			op.Name, mode, strings.Join(required, " "), op.Requirement.Sensitivity)
		if len(op.Parameters) > 0 {
			fmt.Fprintf(out, " parameters=%s", strings.Join(op.Parameters, ","))
		}
		fmt.Fprintln(out)
	}
	return nil
}

var errFindings = errors.New("high severity findings")

func runLint(args []string, out io.Writer) error {
	cfg := authcore.DefaultConfig()
	fs := pflag.NewFlagSet("lint", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.DurationVar(&cfg.JWT.TTL, "ttl", cfg.JWT.TTL, "access token lifetime")
	fs.DurationVar(&cfg.JWT.SuperAdminTTL, "superadmin-ttl", cfg.JWT.SuperAdminTTL, "SUPER_ADMIN token lifetime cap")
	fs.DurationVar(&cfg.JWT.Leeway, "leeway", cfg.JWT.Leeway, "clock skew tolerance")
	fs.StringVar(&cfg.Session.IPMismatch, "ip-mismatch", cfg.Session.IPMismatch, "risk, enforce or ignore")
	noDevice := fs.Bool("no-device-binding", false, "accept tokens without a device hash")
	noUA := fs.Bool("no-ua-binding", false, "accept tokens without a user-agent hash")
	bindingKey := fs.Bool("binding-key", false, "assume an HMAC binding key is configured")
	fs.BoolVar(&cfg.Revocation.Enabled, "revocation", cfg.Revocation.Enabled, "enable the revocation list")
	fs.DurationVar(&cfg.Revocation.LookupTimeout, "revocation-timeout", cfg.Revocation.LookupTimeout, "revocation lookup timeout")
	fs.BoolVar(&cfg.Audit.Enabled, "audit", cfg.Audit.Enabled, "enable audit events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Session.RequireDeviceBinding = !*noDevice
	cfg.Session.RequireUserAgentBinding = !*noUA
	if *bindingKey {
		cfg.Session.BindingKey = []byte("set")
	}

	findings := cfg.Lint()
	for _, w := range findings {
		fmt.Fprintf(out, "%-5s %-24s %s\n", w.Severity, w.Code, w.Message)
	}
	if len(findings.AtLeast(authcore.LintHigh)) > 0 {
		return errFindings
	}
	return nil
}

func compilePolicy(path string) (*policy.Compiled, error) {
	f, err := policy.Load(path)
	if err != nil {
		return nil, err
	}
	return f.Compile(permission.Canonical())
}

// splitList accepts both "VIEW EDIT" and "VIEW,EDIT".
func splitList(args []string) []string {
	var out []string
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func joinRoles(roles []permission.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " > ")
}

