package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kineticdata/peripherals-ldap/internal/config"
	"github.com/kineticdata/peripherals-ldap/internal/ldap"
	"github.com/kineticdata/peripherals-ldap/internal/metrics"
	"github.com/kineticdata/peripherals-ldap/internal/server"
)

type cli struct {
	deps deps
}

// requestFlags are the flags shared by count, retrieve and search.
type requestFlags struct {
	structure  string
	query      string
	parameters map[string]string
	fields     []string
}

func (f *requestFlags) register(cmd *cobra.Command, withFields bool) {
	cmd.Flags().StringVarP(&f.structure, "structure", "s", "", "Object class to search (required)")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Query: an LDAP filter optionally followed by a search base suffix")
	cmd.Flags().StringToStringVarP(&f.parameters, "param", "p", nil, "Query parameter as name=value (repeatable)")
	if withFields {
		cmd.Flags().StringSliceVarP(&f.fields, "field", "f", nil, "Attribute to return (repeatable; default all fields of the structure)")
	}
	_ = cmd.MarkFlagRequired("structure")
}

func (f *requestFlags) request() *ldap.Request {
	return &ldap.Request{
		Structure:  f.structure,
		Query:      f.query,
		Parameters: f.parameters,
		Fields:     f.fields,
	}
}

func (a *cli) countCommand() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count entries matching a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, bridge, err := a.setup(cmd, nil)
			if err != nil {
				return err
			}

			count, err := bridge.Count(cmd.Context(), flags.request())
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), settings.Output, server.CountResponse{Count: count})
		},
	}
	flags.register(cmd, false)
	return cmd
}

func (a *cli) retrieveCommand() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve the single entry matching a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, bridge, err := a.setup(cmd, nil)
			if err != nil {
				return err
			}

			record, err := bridge.Retrieve(cmd.Context(), flags.request())
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), settings.Output, server.RetrieveResponse{Record: record})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func (a *cli) searchCommand() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search entries matching a query, sorted by the requested fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, bridge, err := a.setup(cmd, nil)
			if err != nil {
				return err
			}

			list, err := bridge.Search(cmd.Context(), flags.request())
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), settings.Output, list)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func (a *cli) structuresCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "structures [name]",
		Short: "List object classes, or the fields of one object class",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, bridge, err := a.setup(cmd, nil)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				fields, err := bridge.StructureFields(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), settings.Output, server.StructureResponse{Name: args[0], Fields: fields})
			}

			names, err := bridge.Structures(cmd.Context())
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), settings.Output, server.StructuresResponse{Structures: names})
		},
	}
}

func (a *cli) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bridge over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := metrics.New()

			settings, bridge, err := a.setup(cmd, m)
			if err != nil {
				return err
			}

			// Surface configuration mistakes before accepting requests.
			if initializer, ok := bridge.(interface{ Initialize(context.Context) error }); ok {
				if err := initializer.Initialize(cmd.Context()); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(bridge, server.Options{
				RateLimit: settings.HTTP.RateLimit,
				RateBurst: settings.HTTP.RateBurst,
				Metrics:   m,
			})

			return a.deps.serve(ctx, srv, settings.HTTP.Listen)
		},
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

// setup loads settings and builds the bridge.
func (a *cli) setup(cmd *cobra.Command, observer ldap.Observer) (*config.Settings, server.Bridge, error) {
	configFile, _ := cmd.Flags().GetString("config")

	settings, err := config.LoadSettingsWithFlags(cmd.Flags(), configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, nil, err
	}

	bridge, err := a.deps.newBridge(settings, observer)
	if err != nil {
		return nil, nil, err
	}

	return settings, bridge, nil
}

// write encodes v to w in the requested format.
func write(w io.Writer, format string, v any) error {
	switch format {
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case config.OutputJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
