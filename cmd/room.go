package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prayagsingh/bookings/internal/migrate"
	"github.com/prayagsingh/bookings/internal/rooms"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage rooms",
	}
	cmd.AddCommand(newRoomAddCmd())
	cmd.AddCommand(newRoomListCmd())
	return cmd
}

func newRoomAddCmd() *cobra.Command {
	var name, description string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a bookable room",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d, logger); err != nil {
				return err
			}

			r, err := rooms.NewPostgresRepo(d).CreateRoom(ctx, name, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created room id=%d slug=%s\n", r.ID, r.Slug)
			return nil
		},
	}
	c.Flags().StringVar(&name, "name", "", "room name")
	c.Flags().StringVar(&description, "description", "", "short description shown on the room page")
	_ = c.MarkFlagRequired("name")
	return c
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms",
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

			rs, err := rooms.NewPostgresRepo(d).AllRooms(ctx)
			if err != nil {
				return err
			}
			for _, r := range rs {
				fmt.Fprintf(cmd.OutOrStdout(), "id=%d slug=%s name=%q\n", r.ID, r.Slug, r.Name)
			}
			return nil
		},
	}
}
