package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print user and listing counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		stats, err := e.repos.Listings.Stats(cmd.Context())
		if err != nil {
			return err
		}
		roles, err := e.repos.Users.CountByRole(cmd.Context())
		if err != nil {
			return err
		}
		for _, n := range roles {
			stats.TotalUsers += n
		}
		stats.TotalAdmins = roles[domain.RoleAdmin]

		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func printStats(w io.Writer, s *domain.Stats) {
	fmt.Fprintf(w, "users:     %d (admins %d)\n", s.TotalUsers, s.TotalAdmins)
	fmt.Fprintf(w, "listings:  %d\n", s.TotalListings)
	for _, status := range []domain.ListingStatus{domain.ListingStatusPending, domain.ListingStatusApproved, domain.ListingStatusRejected} {
		fmt.Fprintf(w, "  %-9s %d\n", status, s.ByStatus[status])
	}
	fmt.Fprintln(w, "approved by category:")
	for _, category := range domain.Categories() {
		fmt.Fprintf(w, "  %-12s %d\n", category, s.ApprovedByCategory[category])
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
