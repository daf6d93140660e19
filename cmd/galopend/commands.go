package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"galopen/internal/autostart"
	"galopen/internal/model"
	"galopen/internal/opener"
	"galopen/internal/scheduler"
	"galopen/internal/store"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch today's and tomorrow's events once and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gateway, err := newGateway(cfg, opener.New())
		if err != nil {
			return err
		}
		defer gateway.Close()

		snap, err := scheduler.NewSyncer(gateway, store.NewSnapshotStore()).Sync(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(snap)
	},
}

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List the calendars of the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gateway, err := newGateway(cfg, opener.New())
		if err != nil {
			return err
		}
		defer gateway.Close()

		calendars, err := gateway.ListCalendars(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tTITLE\tID")
		for _, c := range calendars {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.SourceName, c.Title, c.ID)
		}
		return w.Flush()
	},
}

var permissionCmd = &cobra.Command{
	Use:       "permission [request]",
	Short:     "Show the calendar permission, or request it",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"request"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gateway, err := newGateway(cfg, opener.New())
		if err != nil {
			return err
		}
		defer gateway.Close()

		if len(args) == 1 {
			granted, err := gateway.RequestPermission(cmd.Context())
			if err != nil {
				return err
			}
			if !granted {
				return errors.New("calendar access was not granted")
			}
			fmt.Println(model.PermissionGranted)
			return nil
		}

		status, err := gateway.CheckPermission(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	},
}

var autostartCmd = &cobra.Command{
	Use:       "autostart enable|disable|status",
	Short:     "Manage starting galopend at login",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"enable", "disable", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolving executable: %w", err)
		}
		mgr := autostart.New(exe)

		if args[0] == "status" {
			if mgr.Enabled() {
				fmt.Println("enabled")
			} else {
				fmt.Println("disabled")
			}
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enabled := args[0] == "enable"
		if err := mgr.Apply(enabled); err != nil {
			return err
		}

		// Keep the saved setting in step with the login entry.
		appStore, _, err := openStore(cfg)
		if err != nil {
			return err
		}
		return saveStartAtLogin(cmd.Context(), appStore, defaultSettings(cfg), enabled)
	},
}

func saveStartAtLogin(ctx context.Context, st store.Store, defaults model.Settings, enabled bool) error {
	settings, err := st.GetSettings(ctx, defaults)
	if err != nil {
		return err
	}
	settings.StartAtLogin = enabled
	_, err = st.SaveSettings(ctx, settings)
	return err
}
