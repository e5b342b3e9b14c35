package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/export"
	"github.com/joseph-ayodele/medscan/internal/repository"
)

func newListCmd(a *app) *cobra.Command {
	var (
		status string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals (pending by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := constants.ReviewStatus(strings.ToUpper(status))
			props, err := a.proposals.ListByStatus(cmd.Context(), st, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, summaries(props))
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tCONFIDENCE\tCREATED\tSOURCE\tSUMMARY")
			for _, p := range props {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Kind, p.Confidence, p.CreatedAt.Local().Format(time.DateTime), p.SourcePath, describe(p))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", string(constants.ReviewPending), "PENDING | CONFIRMED | REJECTED")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a proposal with its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.proposals.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := a.proposals.AuditTrail(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{
				"id":         p.ID,
				"status":     p.Status,
				"sourcePath": p.SourcePath,
				"result":     p.Result().Payload(),
				"audit":      events,
			})
		},
	}
}

func newConfirmCmd(a *app) *cobra.Command {
	var (
		date   string
		values []string
		units  []string
		drop   []string
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "confirm <id>",
		Short: "Confirm a proposal, optionally with corrections",
		Long: `Confirm writes the reviewed values as permanent records.

Lab proposals: --date sets the collection date (required when the report had
none), --value KEY=N and --unit KEY=UNIT correct a value, --drop KEY leaves an
analyte out. Medication proposals: --set FIELD=VALUE corrects a field; an empty
VALUE clears it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.proposals.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			switch p.Kind {
			case constants.KindLab:
				edits, err := parseLabEdits(date, values, units, drop)
				if err != nil {
					return err
				}
				saved, err := a.proposals.ConfirmLab(cmd.Context(), p.ID, edits)
				if err != nil {
					return err
				}
				return writeJSON(cmd, saved)
			case constants.KindMedication:
				edits, err := parseMedicationEdits(fields)
				if err != nil {
					return err
				}
				saved, err := a.proposals.ConfirmMedication(cmd.Context(), p.ID, edits)
				if err != nil {
					return err
				}
				return writeJSON(cmd, saved)
			}
			return fmt.Errorf("proposal %s has unknown kind %q", p.ID, p.Kind)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "collection date YYYY-MM-DD (lab)")
	cmd.Flags().StringArrayVar(&values, "value", nil, "KEY=NUMBER correction (lab, repeatable)")
	cmd.Flags().StringArrayVar(&units, "unit", nil, "KEY=UNIT correction (lab, repeatable)")
	cmd.Flags().StringArrayVar(&drop, "drop", nil, "analyte KEY to leave out (lab, repeatable)")
	cmd.Flags().StringArrayVar(&fields, "set", nil, "FIELD=VALUE correction (medication, repeatable)")
	return cmd
}

func newRejectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id> <reason>",
		Short: "Reject a proposal",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := strings.Join(args[1:], " ")
			if err := a.proposals.Reject(cmd.Context(), args[0], reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", args[0])
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		status string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write proposals to an XLSX review workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.Batch.ExportPath
			}
			if out == "" {
				out = "medscan-review.xlsx"
			}
			b, err := export.NewService(a.proposals, a.logger).
				ExportStatusXLSX(cmd.Context(), constants.ReviewStatus(strings.ToUpper(status)))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path")
	cmd.Flags().StringVar(&status, "status", string(constants.ReviewPending), "proposal status to export")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the review store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.db.HealthCheck(cmd.Context(), time.Second); err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			pending, err := a.proposals.ListPending(cmd.Context(), 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DB health: OK (%s, %d pending)\n", a.db.Dialect, len(pending))
			return nil
		},
	}
}

type proposalSummary struct {
	ID         string                 `json:"id"`
	Kind       constants.DocumentKind `json:"kind"`
	Status     constants.ReviewStatus `json:"status"`
	Confidence constants.Tier         `json:"confidence"`
	SourcePath string                 `json:"sourcePath"`
	Summary    string                 `json:"summary"`
	CreatedAt  time.Time              `json:"createdAt"`
}

func summaries(props []*repository.Proposal) []proposalSummary {
	out := make([]proposalSummary, 0, len(props))
	for _, p := range props {
		out = append(out, proposalSummary{
			ID: p.ID, Kind: p.Kind, Status: p.Status, Confidence: p.Confidence,
			SourcePath: p.SourcePath, Summary: describe(p), CreatedAt: p.CreatedAt,
		})
	}
	return out
}

// describe is the one-line summary shown in listings.
func describe(p *repository.Proposal) string {
	switch {
	case p.Lab != nil:
		keys := make([]string, 0, len(p.Lab.Candidates))
		for _, c := range p.Lab.Candidates {
			keys = append(keys, string(c.FieldKey))
		}
		s := strings.Join(keys, ",")
		if s == "" {
			s = "no values"
		}
		if p.Lab.DetectedDate == nil {
			s += " (needs date)"
		}
		return s
	case p.Medication != nil:
		if p.Medication.DisplayName == nil {
			return "unnamed medication"
		}
		s := *p.Medication.DisplayName
		if p.Medication.Strength != nil {
			s += " " + *p.Medication.Strength
		}
		return s
	}
	return ""
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
