package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/YusovID/bim-delivery-service/internal/app"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/export"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/spf13/cobra"
)

func refreshCmd() *cobra.Command {
	var (
		projectID int64
		today     string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Apply date-driven status changes to a project's review cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(today)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				updated, err := a.Services.Status.RefreshStatusesByDate(ctx, projectID, day)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d review(s) updated as of %s\n", updated, day.Format(dateLayout))
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&projectID, "project", "p", 0, "project id")
	cmd.Flags().StringVar(&today, "today", "", "reference date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func kpisCmd() *cobra.Command {
	var (
		projectID int64
		today     string
	)

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Show delivery and billing KPIs for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(today)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				kpis, err := a.Services.Completion.ProjectKPIs(ctx, projectID, day)
				if err != nil {
					return err
				}

				renderKPIs(cmd.OutOrStdout(), kpis)
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&projectID, "project", "p", 0, "project id")
	cmd.Flags().StringVar(&today, "today", "", "reference date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func reviewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Generate and inspect review cycles",
	}

	cmd.AddCommand(reviewsGenerateCmd())
	cmd.AddCommand(reviewsDueCmd())

	return cmd
}

func reviewsGenerateCmd() *cobra.Command {
	var (
		projectID      int64
		serviceID      int64
		force          bool
		preserveManual bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Reconcile review cycles for one service or every service in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (projectID == 0) == (serviceID == 0) {
				return fmt.Errorf("exactly one of --project or --service is required")
			}

			opts := service.GenerateOptions{Force: force, PreserveManual: preserveManual}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if serviceID != 0 {
					res, err := a.Services.Cycles.Generate(ctx, serviceID, opts)
					if err != nil {
						return err
					}

					renderGenerateResults(cmd.OutOrStdout(), []service.GenerateResult{*res})
					return nil
				}

				results, err := a.Services.Cycles.GenerateServiceReviews(ctx, projectID, opts)
				if err != nil {
					return err
				}

				renderGenerateResults(cmd.OutOrStdout(), results)
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&projectID, "project", "p", 0, "project id")
	cmd.Flags().Int64VarP(&serviceID, "service", "s", 0, "service id")
	cmd.Flags().BoolVar(&force, "force", false, "drop and rebuild every cycle")
	cmd.Flags().BoolVar(&preserveManual, "preserve-manual", false, "with --force, refuse to discard altered cycles")

	return cmd
}

func reviewsDueCmd() *cobra.Command {
	var (
		projectID int64
		from, to  string
	)

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List review cycles due in a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDay, err := requireDay("from", from)
			if err != nil {
				return err
			}

			toDay, err := requireDay("to", to)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				reviews, err := a.Services.Cycles.ListDueBetween(ctx, projectID, fromDay, toDay)
				if err != nil {
					return err
				}

				renderReviews(cmd.OutOrStdout(), reviews)
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&projectID, "project", "p", 0, "project id")
	cmd.Flags().StringVar(&from, "from", "", "first due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func claimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Generate, advance and export progress claims",
	}

	cmd.AddCommand(claimGenerateCmd())
	cmd.AddCommand(claimStatusCmd())
	cmd.AddCommand(claimExportCmd())

	return cmd
}

func claimGenerateCmd() *cobra.Command {
	var (
		projectID int64
		from, to  string
		poRef     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a draft claim for the progress made since the previous claim",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := requireDay("from", from)
			if err != nil {
				return err
			}

			end, err := requireDay("to", to)
			if err != nil {
				return err
			}

			req := service.ClaimRequest{ProjectID: projectID, PeriodStart: start, PeriodEnd: end}
			if poRef != "" {
				req.PORef = &poRef
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				claim, err := a.Services.Billing.GenerateClaim(ctx, req)
				if err != nil {
					return err
				}

				return export.WriteClaim(cmd.OutOrStdout(), claim, export.FormatTable)
			})
		},
	}

	cmd.Flags().Int64VarP(&projectID, "project", "p", 0, "project id")
	cmd.Flags().StringVar(&from, "from", "", "period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&poRef, "po", "", "purchase order reference")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func claimStatusCmd() *cobra.Command {
	var (
		claimID    int64
		status     string
		invoiceRef string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Move a claim to submitted or paid",
		RunE: func(cmd *cobra.Command, args []string) error {
			next := domain.ClaimStatus(strings.ToLower(status))
			if !next.Valid() {
				return fmt.Errorf("unknown claim status %q", status)
			}

			var ref *string
			if invoiceRef != "" {
				ref = &invoiceRef
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				claim, err := a.Services.Billing.SetClaimStatus(ctx, claimID, next, ref)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "claim %d is %s\n", claim.ID, claim.Status)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&claimID, "id", 0, "claim id")
	cmd.Flags().StringVar(&status, "status", "", "draft, submitted or paid")
	cmd.Flags().StringVar(&invoiceRef, "invoice", "", "invoice reference")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

func claimExportCmd() *cobra.Command {
	var (
		claimID int64
		format  string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a claim as CSV or a text table",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				claim, err := a.Services.Billing.GetClaim(ctx, claimID)
				if err != nil {
					return err
				}

				if out == "" {
					return export.WriteClaim(cmd.OutOrStdout(), claim, f)
				}

				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("can't create %s: %w", out, err)
				}
				defer file.Close()

				if err := export.WriteClaim(file, claim, f); err != nil {
					return err
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "claim %d written to %s\n", claim.ID, out)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&claimID, "id", 0, "claim id")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or table")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage the service template catalog",
	}

	cmd.AddCommand(templatesListCmd())
	cmd.AddCommand(templatesImportCmd())

	return cmd
}

func templatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				templates, err := a.Services.Templates.ListTemplates(ctx)
				if err != nil {
					return err
				}

				renderTemplates(cmd.OutOrStdout(), templates)
				return nil
			})
		},
	}
}

func templatesImportCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a YAML template catalog; templates already stored are skipped",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				total, created, err := app.ImportCatalogFile(ctx, a.Services.Templates, path)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d template(s) in catalog, %d created\n", total, created)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "catalog file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
