package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-log/tfsdklog"
	"github.com/spf13/cobra"

	"github.com/kineticdata/peripherals-ldap/internal/config"
	"github.com/kineticdata/peripherals-ldap/internal/ldap"
	"github.com/kineticdata/peripherals-ldap/internal/server"
)

var (
	// Version is injected at build time
	Version = "dev"
	// ProgramName is injected at build time
	ProgramName = "ldapbridge"
)

// logLevelEnv selects the log level; logs are JSON lines on stderr.
const logLevelEnv = "LDAPBRIDGE_LOG"

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(context.Background(), defaultDeps(), args[1:]); err != nil {
		exit(1)
	}
}

// deps holds the collaborators commands are built from, so tests can
// substitute the bridge.
type deps struct {
	stdout    io.Writer
	stderr    io.Writer
	newBridge func(settings *config.Settings, observer ldap.Observer) (server.Bridge, error)
	serve     func(ctx context.Context, srv *server.Server, addr string) error
}

func defaultDeps() deps {
	return deps{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newBridge: func(settings *config.Settings, observer ldap.Observer) (server.Bridge, error) {
			return ldap.NewAdapter(settings.LDAPConfig(), ldap.WithObserver(observer))
		},
		serve: func(ctx context.Context, srv *server.Server, addr string) error {
			return srv.ListenAndServe(ctx, addr)
		},
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(ctx context.Context, d deps, args []string) error {
	ldap.Version = Version

	rootCmd := &cobra.Command{
		Use:           ProgramName,
		Short:         "LDAP bridge",
		Long:          "Count, retrieve and search directory entries through the LDAP bridge adapter, from the command line or over HTTP.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	rootCmd.SetOut(d.stdout)
	rootCmd.SetErr(d.stderr)
	rootCmd.SetArgs(args)

	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (default ./ldapbridge.yaml when present)")

	app := &cli{deps: d}
	rootCmd.AddCommand(
		app.countCommand(),
		app.retrieveCommand(),
		app.searchCommand(),
		app.structuresCommand(),
		app.serveCommand(),
	)

	err := rootCmd.ExecuteContext(newLoggingContext(ctx))
	if err != nil {
		fmt.Fprintln(d.stderr, "Error:", err)
	}
	return err
}

// newLoggingContext installs the root logger and the subsystems used by
// the bridge core and the HTTP bridge.
func newLoggingContext(ctx context.Context) context.Context {
	ctx = tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName(ProgramName),
		tfsdklog.WithLevelFromEnv(logLevelEnv),
	)
	ctx = ldap.NewLoggingContext(ctx, logLevelEnv)
	ctx = tflog.NewSubsystem(ctx, server.Subsystem, tflog.WithLevelFromEnv(logLevelEnv))
	return ctx
}
