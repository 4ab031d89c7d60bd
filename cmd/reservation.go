package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prayagsingh/bookings/internal/rooms"
)

func newReservationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservation",
		Short: "Inspect reservations",
	}
	cmd.AddCommand(newReservationListCmd())
	return cmd
}

func newReservationListCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "list",
		Short: "List the most recent reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			list, err := rooms.NewPostgresRepo(d).ListReservations(ctx, limit)
			if err != nil {
				return err
			}
			for _, r := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "id=%d room=%q guest=%q email=%s %s..%s\n",
					r.ID, r.Room.Name, r.FirstName+" "+r.LastName, r.Email, rooms.FormatDate(r.StartDate), rooms.FormatDate(r.EndDate))
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 50, "maximum reservations to show")
	return c
}
