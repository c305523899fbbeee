package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudvault/cloudvault-go/internal/api"
)

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List available subscription plans",
		RunE:  runPlans,
	}
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <plan-id>",
		Short: "Show a subscription plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
}

func runPlans(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	plans, err := client.ListPlans(ctx)
	if err != nil {
		return fmt.Errorf("listing plans: %w", err)
	}

	if flagJSON {
		return printJSON(plans)
	}

	headers := []string{"ID", "NAME", "STORAGE", "PRICE"}
	rows := make([][]string, 0, len(plans))

	for i := range plans {
		rows = append(rows, []string{
			strconv.FormatInt(plans[i].ID, 10),
			plans[i].Name,
			formatSize(plans[i].StorageLimit),
			fmt.Sprintf("%.2f %s", plans[i].Price, plans[i].Currency),
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	plan, err := client.GetPlan(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching plan %d: %w", id, err)
	}

	if flagJSON {
		return printJSON(plan)
	}

	printPlanText(plan)

	return nil
}

func printPlanText(plan *api.Plan) {
	fmt.Printf("Plan:    %s\n", plan.Name)
	fmt.Printf("Storage: %s\n", formatSize(plan.StorageLimit))
	fmt.Printf("Price:   %.2f %s\n", plan.Price, plan.Currency)

	if plan.Features != "" {
		fmt.Printf("Features: %s\n", plan.Features)
	}
}
