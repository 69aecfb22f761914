package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calbot/calbot/internal/config"
	"github.com/calbot/calbot/internal/server"
)

func newCheckCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check configuration and Cal.com connectivity",
		Long: `Verify that the assistant is configured correctly.

Reports whether the required credentials are present and, unless
--offline is set, performs a test call against the Cal.com API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the live Cal.com API call")

	return cmd
}

func runCheck(offline bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	bold := color.New(color.FgCyan, color.Bold)
	bold.Println("calbot configuration check")
	fmt.Println("==========================")

	failed := 0
	report := func(name string, ok bool) {
		if ok {
			fmt.Printf("✅ %s is set\n", name)
		} else {
			color.Red("❌ %s is not set", name)
			failed++
		}
	}

	report("OPENAI_API_KEY", cfg.OpenAI.APIKey != "")
	report("CAL_API_KEY", cfg.CalCom.APIKey != "")
	report("CAL_EVENT_TYPE_ID", cfg.CalCom.EventTypeID > 0)

	fmt.Println()
	fmt.Printf("Model: %s\n", cfg.OpenAI.Model)
	fmt.Printf("Cal.com API: %s (event type %d)\n", cfg.CalCom.BaseURL, cfg.CalCom.EventTypeID)
	fmt.Printf("Agent limits: %d tool iterations, %d history messages\n",
		cfg.Agent.MaxToolIterations, cfg.Agent.MaxHistory)

	if !offline && cfg.CalCom.APIKey != "" && cfg.CalCom.EventTypeID > 0 {
		fmt.Println()
		if err := checkCalendarAccess(cfg); err != nil {
			color.Red("❌ Cal.com API: %v", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}

	fmt.Println()
	color.Green("All checks passed")
	return nil
}

// checkCalendarAccess lists bookings once to prove the key and event
// type are accepted by the API.
func checkCalendarAccess(cfg *config.Config) error {
	sc, err := server.NewServerContext(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sc.Shutdown() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CalCom.RequestTimeout())
	defer cancel()

	bookings, err := sc.Calendar().ListBookings(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Cal.com API reachable (%d bookings visible)\n", len(bookings))
	return nil
}
