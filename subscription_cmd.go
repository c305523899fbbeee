package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudvault/cloudvault-go/internal/api"
)

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Manage the plan subscription",
		RunE:  runSubscriptionShow,
	}

	cmd.AddCommand(newSubscriptionListCmd())
	cmd.AddCommand(newSubscribeCmd())
	cmd.AddCommand(newUpgradeCmd())
	cmd.AddCommand(newDowngradeCmd())
	cmd.AddCommand(newCancelCmd())
	cmd.AddCommand(newRenewCmd())

	return cmd
}

func newSubscriptionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all subscriptions, past and present",
		RunE:  runSubscriptionList,
	}
}

func newSubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe <plan-id>",
		Short: "Subscribe to a plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runSubscribe,
	}

	cmd.Flags().Bool("auto-renew", false, "renew automatically at period end")

	return cmd
}

func newUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <plan-id>",
		Short: "Upgrade to a larger plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpgrade,
	}
}

func newDowngradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "downgrade <plan-id>",
		Short: "Downgrade to a smaller plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runDowngrade,
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active subscription",
		RunE:  runCancel,
	}
}

func newRenewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew",
		Short: "Renew the subscription for another period",
		RunE:  runRenew,
	}
}

func runSubscriptionShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	sub, err := client.CurrentSubscription(ctx)
	if err != nil {
		return fmt.Errorf("fetching subscription: %w", err)
	}

	if flagJSON {
		return printJSON(sub)
	}

	printSubscriptionText(sub)

	return nil
}

func runSubscriptionList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	subs, err := client.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("fetching subscriptions: %w", err)
	}

	if flagJSON {
		return printJSON(subs)
	}

	if len(subs) == 0 {
		statusf("No subscriptions.\n")
		return nil
	}

	rows := make([][]string, 0, len(subs))
	for i := range subs {
		planName := fmt.Sprintf("plan %d", subs[i].PlanID)
		if subs[i].Plan != nil {
			planName = subs[i].Plan.Name
		}

		state := "inactive"
		if subs[i].IsActive {
			state = "active"
		}

		rows = append(rows, []string{
			strconv.FormatInt(subs[i].ID, 10),
			planName,
			state,
			subs[i].StartDate.Format("2006-01-02"),
			subs[i].EndDate.Format("2006-01-02"),
		})
	}

	printTable(os.Stdout, []string{"ID", "PLAN", "STATE", "START", "END"}, rows)

	return nil
}

func printSubscriptionText(sub *api.Subscription) {
	planName := fmt.Sprintf("plan %d", sub.PlanID)
	if sub.Plan != nil {
		planName = sub.Plan.Name
	}

	state := "inactive"
	if sub.IsActive {
		state = "active"
	}

	fmt.Printf("Plan:   %s (%s)\n", planName, state)
	fmt.Printf("Period: %s — %s\n",
		sub.StartDate.Format("2006-01-02"), sub.EndDate.Format("2006-01-02"))
	fmt.Printf("Renew:  %v\n", sub.AutoRenew)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	planID, err := parseID(args[0])
	if err != nil {
		return err
	}

	autoRenew, err := cmd.Flags().GetBool("auto-renew")
	if err != nil {
		return err
	}

	sub, err := client.CreateSubscription(ctx, api.SubscriptionCreateRequest{
		PlanID:    planID,
		AutoRenew: autoRenew,
	})
	if err != nil {
		return fmt.Errorf("subscribing to plan %d: %w", planID, err)
	}

	if flagJSON {
		return printJSON(sub)
	}

	statusf("Subscribed to plan %d\n", sub.PlanID)

	return nil
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	return changePlan(cmd, args[0], "upgrade")
}

func runDowngrade(cmd *cobra.Command, args []string) error {
	return changePlan(cmd, args[0], "downgrade")
}

// changePlan handles the shared upgrade/downgrade flow.
func changePlan(cmd *cobra.Command, arg, direction string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	planID, err := parseID(arg)
	if err != nil {
		return err
	}

	var sub *api.Subscription

	if direction == "upgrade" {
		sub, err = client.UpgradeSubscription(ctx, planID)
	} else {
		sub, err = client.DowngradeSubscription(ctx, planID)
	}

	if err != nil {
		return fmt.Errorf("%s to plan %d: %w", direction, planID, err)
	}

	if flagJSON {
		return printJSON(sub)
	}

	statusf("Switched to plan %d\n", sub.PlanID)

	return nil
}

func runCancel(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	if err := client.CancelSubscription(ctx); err != nil {
		return fmt.Errorf("cancelling subscription: %w", err)
	}

	statusf("Subscription cancelled.\n")

	return nil
}

func runRenew(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	sub, err := client.RenewSubscription(ctx)
	if err != nil {
		return fmt.Errorf("renewing subscription: %w", err)
	}

	if flagJSON {
		return printJSON(sub)
	}

	statusf("Renewed until %s\n", sub.EndDate.Format("2006-01-02"))

	return nil
}
