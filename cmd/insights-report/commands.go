package main

import (
	"context"
	"fmt"

	"crm_insights_backend/internal/insights/analytics"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/transport"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// reportService is the part of the insights service the CLI drives.
type reportService interface {
	LeadInsights(ctx context.Context, scope repository.Scope, leadID uuid.UUID) (transport.LeadInsightsResponse, error)
	ClientInsights(ctx context.Context, scope repository.Scope, clientID uuid.UUID) (transport.ClientInsightsResponse, error)
	Dashboard(ctx context.Context, scope repository.Scope, period analytics.Period) (transport.DashboardResponse, error)
	RequestHealthRefresh(ctx context.Context, organizationID uuid.UUID) (transport.HealthRefreshResponse, error)
}

type serviceLoader func(ctx context.Context, queue bool) (reportService, func(), error)

type rootOptions struct {
	org    string
	owner  string
	format string
}

// scope resolves --org and --owner. Without --owner the report covers the
// whole organization.
func (o rootOptions) scope() (repository.Scope, error) {
	orgID, err := uuid.Parse(o.org)
	if err != nil {
		return repository.Scope{}, fmt.Errorf("invalid --org %q: %w", o.org, err)
	}
	if o.owner == "" {
		return repository.OrganizationScope(orgID), nil
	}
	ownerID, err := uuid.Parse(o.owner)
	if err != nil {
		return repository.Scope{}, fmt.Errorf("invalid --owner %q: %w", o.owner, err)
	}
	return repository.OwnerScope(orgID, ownerID), nil
}

func newRootCmd(load serviceLoader) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "insights-report",
		Short:         "Print CRM insights for an organization",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if _, err := parseFormat(opts.format); err != nil {
				return err
			}
			if _, err := opts.scope(); err != nil {
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.org, "org", "", "organization id")
	root.PersistentFlags().StringVar(&opts.owner, "owner", "", "restrict to records owned by this user id")
	root.PersistentFlags().StringVar(&opts.format, "format", string(formatJSON), "output format: json|yaml")
	_ = root.MarkPersistentFlagRequired("org")

	root.AddCommand(newLeadCmd(opts, load))
	root.AddCommand(newClientCmd(opts, load))
	root.AddCommand(newDashboardCmd(opts, load))
	root.AddCommand(newRefreshHealthCmd(opts, load))
	return root
}

// run loads the service, calls fn and prints its result.
func run(cmd *cobra.Command, opts *rootOptions, load serviceLoader, queue bool, fn func(context.Context, reportService, repository.Scope) (any, error)) error {
	scope, err := opts.scope()
	if err != nil {
		return err
	}
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	svc, cleanup, err := load(cmd.Context(), queue)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := fn(cmd.Context(), svc, scope)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), format, out)
}

func newLeadCmd(opts *rootOptions, load serviceLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "lead <id>",
		Short: "Show metrics, flags and suggested actions for a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid lead id %q: %w", args[0], err)
			}
			return run(cmd, opts, load, false, func(ctx context.Context, svc reportService, scope repository.Scope) (any, error) {
				return svc.LeadInsights(ctx, scope, leadID)
			})
		},
	}
}

func newClientCmd(opts *rootOptions, load serviceLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "client <id>",
		Short: "Show metrics, flags and suggested actions for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid client id %q: %w", args[0], err)
			}
			return run(cmd, opts, load, false, func(ctx context.Context, svc reportService, scope repository.Scope) (any, error) {
				return svc.ClientInsights(ctx, scope, clientID)
			})
		},
	}
}

func newDashboardCmd(opts *rootOptions, load serviceLoader) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the pipeline and portfolio dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := analytics.ParsePeriod(period)
			if err != nil {
				return err
			}
			return run(cmd, opts, load, false, func(ctx context.Context, svc reportService, scope repository.Scope) (any, error) {
				return svc.Dashboard(ctx, scope, p)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(analytics.DefaultPeriod), "revenue period: week|month|quarter")
	return cmd
}

func newRefreshHealthCmd(opts *rootOptions, load serviceLoader) *cobra.Command {
	var queue bool
	cmd := &cobra.Command{
		Use:   "refresh-health",
		Short: "Recompute and store every client's health score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, load, queue, func(ctx context.Context, svc reportService, scope repository.Scope) (any, error) {
				return svc.RequestHealthRefresh(ctx, scope.OrganizationID)
			})
		},
	}
	cmd.Flags().BoolVar(&queue, "queue", false, "enqueue the refresh for the scheduler instead of running it here")
	return cmd
}
