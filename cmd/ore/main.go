package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "oremarket/internal/cli"
	"oremarket/internal/catalog"
	"oremarket/internal/config"
	"oremarket/internal/game"
	"oremarket/internal/syncq"

	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "ore",
		Short:        "Ore market idle game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newDashCmd(&apiBase),
		newMarketCmd(&apiBase),
		newWatchCmd(&apiBase),
		newTickCmd(&apiBase),
		newOrdersCmd(&apiBase),
		newInvestCmd(&apiBase),
		newCompanyCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newCatalogCmd(&apiBase),
		newHostCmd(&apiBase),
		newStateCmd(&apiBase),
		newSettingsCmd(&apiBase),
		newWebhookCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

// send runs a write. When the API cannot be reached the write is queued for
// `ore sync` and queued is true.
func send(cmd *cobra.Command, apiBase *string, c syncq.Command, out any) (queued bool, err error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	err = newClient(apiBase).Send(ctx, c, out)
	if err == nil || !cl.IsNetworkError(err) {
		return false, err
	}
	q, qerr := syncq.Default()
	if qerr != nil {
		return false, fmt.Errorf("request failed and queue unavailable: %w", err)
	}
	if qerr := q.Push(c); qerr != nil {
		return false, fmt.Errorf("request failed and could not be queued: %w", err)
	}
	printWarn(fmt.Sprintf("API unreachable; queued %s %s for `ore sync`.", c.Method, c.Path))
	return true, nil
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			out, err := newClient(apiBase).Dashboard(ctx)
			if err != nil {
				return err
			}
			renderDashboard(out)
			return nil
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "market [ore]",
		Short: "List ore prices or inspect one ore",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			client := newClient(apiBase)
			if len(args) == 1 {
				out, err := client.Resource(ctx, catalog.NormalizeKey(args[0]))
				if err != nil {
					return err
				}
				renderResource(out)
				return nil
			}
			out, err := client.Market(ctx)
			if err != nil {
				return err
			}
			renderMarket(out)
			return nil
		},
	}
}

func newTickCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Advance the market by one tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.TickCommand()
			if err != nil {
				return err
			}
			var out struct {
				Resources []game.ResourceView `json:"resources"`
			}
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			renderMarket(out.Resources)
			return nil
		},
	}
}

func newOrdersCmd(apiBase *string) *cobra.Command {
	var listTier float64
	orders := &cobra.Command{
		Use:     "orders",
		Short:   "List and work mining orders",
		Aliases: []string{"order"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return listOrders(cmd, apiBase, listTier)
		},
	}
	orders.Flags().Float64Var(&listTier, "tier", 0, "only show orders of this tier (0 shows all)")
	list := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listOrders(cmd, apiBase, listTier)
		},
	}
	list.Flags().Float64Var(&listTier, "tier", 0, "only show orders of this tier (0 shows all)")
	orders.AddCommand(list)

	var (
		mode     string
		tier     float64
		resource string
	)
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.NewOrderCommand(game.OrderRequest{
				Mode:     game.OrderMode(strings.ToLower(strings.TrimSpace(mode))),
				Tier:     tier,
				Resource: catalog.NormalizeKey(resource),
			})
			if err != nil {
				return err
			}
			var out game.OrderView
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			renderOrders([]game.OrderView{out})
			return nil
		},
	}
	newCmd.Flags().StringVar(&mode, "mode", string(game.ModeSolo), "solo or company")
	newCmd.Flags().Float64Var(&tier, "tier", 0, "order tier (0 picks one for your level)")
	newCmd.Flags().StringVar(&resource, "ore", "", "ore key (empty draws one)")
	orders.AddCommand(newCmd)

	for _, action := range []string{"accept", "complete", "decline", "cancel"} {
		orders.AddCommand(newOrderActionCmd(apiBase, action))
	}
	return orders
}

func newOrderActionCmd(apiBase *string, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <order-id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.OrderActionCommand(strings.TrimSpace(args[0]), action)
			if err != nil {
				return err
			}
			var out map[string]any
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			switch action {
			case "complete":
				printSuccess(fmt.Sprintf("Order %s completed for %s.", args[0], money(asFloat(out["final_payout"]))))
			case "decline":
				printWarn(fmt.Sprintf("Order %s declined, lost %d XP.", args[0], int64(asFloat(out["xp_lost"]))))
			default:
				printSuccess(fmt.Sprintf("Order %s: %s ok.", args[0], action))
			}
			return nil
		},
	}
}

func listOrders(cmd *cobra.Command, apiBase *string, tier float64) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	out, err := newClient(apiBase).Orders(ctx)
	if err != nil {
		return err
	}
	renderOrders(filterOrdersByTier(out, tier))
	return nil
}

// filterOrdersByTier keeps orders of the given tier. Tier 0 keeps all.
func filterOrdersByTier(orders []game.OrderView, tier float64) []game.OrderView {
	if tier <= 0 {
		return orders
	}
	out := make([]game.OrderView, 0, len(orders))
	for _, o := range orders {
		if o.Tier == tier {
			out = append(out, o)
		}
	}
	return out
}

func newInvestCmd(apiBase *string) *cobra.Command {
	invest := &cobra.Command{
		Use:     "invest",
		Short:   "Buy into ore price moves",
		Aliases: []string{"investments"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return listInvestments(cmd, apiBase)
		},
	}
	invest.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List investments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listInvestments(cmd, apiBase)
		},
	})

	var company bool
	buy := &cobra.Command{
		Use:   "buy <ore> <amount>",
		Short: "Invest an amount of money in an ore",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			owner := game.OwnerPlayer
			if company {
				owner = game.OwnerCompany
			}
			c, err := cl.InvestCommand(game.InvestRequest{Resource: catalog.NormalizeKey(args[0]), Amount: amount, Owner: owner})
			if err != nil {
				return err
			}
			var out game.Investment
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %d %s at %s (%s).", out.Qty, out.Resource, money(out.BuyPrice), out.ID))
			return nil
		},
	}
	buy.Flags().BoolVar(&company, "company", false, "invest company funds")
	invest.AddCommand(buy)

	invest.AddCommand(&cobra.Command{
		Use:   "sell <investment-id>",
		Short: "Sell an investment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.SellCommand(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			var out map[string]any
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			printSuccess(fmt.Sprintf("Sold %s for %s.", args[0], money(asFloat(out["proceeds"]))))
			return nil
		},
	})
	return invest
}

func listInvestments(cmd *cobra.Command, apiBase *string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	out, err := newClient(apiBase).Investments(ctx)
	if err != nil {
		return err
	}
	renderInvestments(out)
	return nil
}

func newCompanyCmd(apiBase *string) *cobra.Command {
	company := &cobra.Command{
		Use:     "company",
		Short:   "Company commands",
		Aliases: []string{"companies"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCompanies(cmd, apiBase)
		},
	}
	company.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCompanies(cmd, apiBase)
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "create [name]",
		Short: "Found a company",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if strings.TrimSpace(name) == "" {
				var err error
				if name, err = promptRequired("Company name"); err != nil {
					return err
				}
			}
			c, err := cl.CreateCompanyCommand(name)
			if err != nil {
				return err
			}
			var out game.Company
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			printSuccess(fmt.Sprintf("Founded %s (%s).", out.Name, out.ID))
			return nil
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "join <company-id>",
		Short: "Join a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.JoinCompanyCommand(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			var out game.Company
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			printSuccess(fmt.Sprintf("Joined %s.", out.Name))
			return nil
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "leave",
		Short: "Leave your company",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.LeaveCompanyCommand()
			if err != nil {
				return err
			}
			queued, err := send(cmd, apiBase, c, nil)
			if err != nil || queued {
				return err
			}
			printSuccess("Left company.")
			return nil
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "transfer <company-id> <amount>",
		Short: "Move money into a company",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			c, err := cl.TransferCommand(strings.TrimSpace(args[0]), amount)
			if err != nil {
				return err
			}
			var out game.Company
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			printSuccess(fmt.Sprintf("Transferred %s to %s (now %s).", money(amount), out.Name, money(out.NetWorth)))
			return nil
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "dissolve <company-id>",
		Short: "Dissolve a company and liquidate its holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.DissolveCommand(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			queued, err := send(cmd, apiBase, c, nil)
			if err != nil || queued {
				return err
			}
			printSuccess(fmt.Sprintf("Dissolved %s.", args[0]))
			return nil
		},
	})
	return company
}

func listCompanies(cmd *cobra.Command, apiBase *string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	out, err := newClient(apiBase).Companies(ctx)
	if err != nil {
		return err
	}
	renderCompanies(out)
	return nil
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Short:   "Show player and company rankings",
		Aliases: []string{"lb"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx)
			if err != nil {
				return err
			}
			renderLeaderboard(out)
			return nil
		},
	}
}

func newCatalogCmd(apiBase *string) *cobra.Command {
	cat := &cobra.Command{
		Use:   "catalog",
		Short: "Ore catalog commands",
	}
	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the resolved ore catalog as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			raw, err := newClient(apiBase).ExportCatalog(ctx)
			if err != nil {
				return err
			}
			return writeOutput(output, raw)
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cat.AddCommand(export)
	return cat
}

func newHostCmd(apiBase *string) *cobra.Command {
	host := &cobra.Command{
		Use:   "host",
		Short: "Author custom ores",
	}

	var (
		ore      catalog.Ore
		lo, hi   float64
	)
	set := &cobra.Command{
		Use:   "set-ore <key>",
		Short: "Add or replace a host ore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := catalog.NormalizeKey(args[0])
			if err := catalog.ValidateKey(key); err != nil {
				return err
			}
			ore.BaseValueRange = []float64{lo, hi}
			c, err := cl.SetHostOreCommand(key, ore)
			if err != nil {
				return err
			}
			var out game.ResourceView
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			renderResource(out)
			return nil
		},
	}
	f := set.Flags()
	f.StringVar(&ore.Display, "display", "", "display name")
	f.StringVar(&ore.Symbol, "symbol", "", "ticker symbol")
	f.Float64Var(&lo, "min", 1, "base value at zero scarcity")
	f.Float64Var(&hi, "max", 10, "base value at full scarcity")
	f.Float64Var(&ore.Demand, "demand", 50, "demand 0-100")
	f.Float64Var(&ore.Commonness, "commonness", 50, "commonness 0-100")
	f.Float64Var(&ore.Volatility, "volatility", 1, "noise scale")
	f.Float64Var(&ore.CrashDepth, "crash-depth", 0.3, "crash depth 0-0.9")
	f.Float64Var(&ore.Recovery, "recovery", 0.5, "recovery rate")
	f.Float64Var(&ore.MaxSupply, "max-supply", catalog.DefaultMaxSupply, "maximum supply")
	f.Float64Var(&ore.StockLevel, "stock", 0, "initial stock level 0-1 (0 draws one)")
	host.AddCommand(set)

	host.AddCommand(&cobra.Command{
		Use:   "remove-ore <key>",
		Short: "Remove a host ore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := catalog.NormalizeKey(args[0])
			c, err := cl.RemoveHostOreCommand(key)
			if err != nil {
				return err
			}
			queued, err := send(cmd, apiBase, c, nil)
			if err != nil || queued {
				return err
			}
			printSuccess(fmt.Sprintf("Removed host ore %s.", key))
			return nil
		},
	})
	return host
}

func newStateCmd(apiBase *string) *cobra.Command {
	state := &cobra.Command{
		Use:   "state",
		Short: "Export, import or reset the save",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the save as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			raw, err := newClient(apiBase).ExportState(ctx)
			if err != nil {
				return err
			}
			return writeOutput(output, raw)
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	state.AddCommand(export)

	var importYes bool
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the save with an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, err := cl.ImportStateCommand(raw)
			if err != nil {
				return err
			}
			ok, err := confirm("Load imported data and overwrite current state", importYes)
			if err != nil {
				return err
			}
			if !ok {
				printInfo("Import cancelled.")
				return nil
			}
			var out game.Dashboard
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			printSuccess("Save imported.")
			renderDashboard(out)
			return nil
		},
	}
	importCmd.Flags().BoolVar(&importYes, "yes", false, "skip confirmation")
	state.AddCommand(importCmd)

	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Start a fresh game",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm("Reset all progress", yes)
			if err != nil {
				return err
			}
			if !ok {
				printInfo("Reset cancelled.")
				return nil
			}
			c, err := cl.ResetCommand()
			if err != nil {
				return err
			}
			queued, err := send(cmd, apiBase, c, nil)
			if err != nil || queued {
				return err
			}
			printSuccess("Game reset.")
			return nil
		},
	}
	reset.Flags().BoolVar(&yes, "yes", false, "skip confirmation")
	state.AddCommand(reset)
	return state
}

func newSettingsCmd(apiBase *string) *cobra.Command {
	var (
		autoTick, autoOrders bool
		tickMs               int64
		rarity               string
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change game settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch game.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("auto-tick") {
				patch.AutoTick = &autoTick
			}
			if flags.Changed("auto-orders") {
				patch.AutoOrders = &autoOrders
			}
			if flags.Changed("tick-ms") {
				patch.TickMs = &tickMs
			}
			if flags.Changed("rarity") {
				patch.Rarity = &rarity
			}
			if patch == (game.SettingsPatch{}) {
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()
				out, err := newClient(apiBase).Settings(ctx)
				if err != nil {
					return err
				}
				renderSettings(out.Settings, out.Webhook)
				return nil
			}
			c, err := cl.SettingsCommand(patch)
			if err != nil {
				return err
			}
			var out game.Settings
			queued, err := send(cmd, apiBase, c, &out)
			if err != nil || queued {
				return err
			}
			renderSettings(out, false)
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoTick, "auto-tick", true, "tick the market automatically")
	cmd.Flags().BoolVar(&autoOrders, "auto-orders", true, "generate orders automatically")
	cmd.Flags().Int64Var(&tickMs, "tick-ms", game.DefaultTickMs, "market tick interval in ms")
	cmd.Flags().StringVar(&rarity, "rarity", "normal", "calm, normal or wild")
	return cmd
}

func newWebhookCmd(apiBase *string) *cobra.Command {
	hook := &cobra.Command{
		Use:   "webhook",
		Short: "Configure event notifications",
	}
	hook.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Send events to a Discord or JSON webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.SetWebhookCommand(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			queued, err := send(cmd, apiBase, c, nil)
			if err != nil || queued {
				return err
			}
			printSuccess("Webhook saved.")
			return nil
		},
	})
	hook.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Stop sending events",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cl.ClearWebhookCommand()
			if err != nil {
				return err
			}
			queued, err := send(cmd, apiBase, c, nil)
			if err != nil || queued {
				return err
			}
			printSuccess("Webhook cleared.")
			return nil
		},
	})
	return hook
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay writes queued while the API was unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := syncq.Default()
			if err != nil {
				return err
			}
			queue, err := q.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			sent, remaining := newClient(apiBase).Replay(ctx, queue, func(c syncq.Command, err error) {
				printError(fmt.Sprintf("Sync failed for %s %s: %v", c.Method, c.Path, err))
			})
			if err := q.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", sent, len(remaining)))
			return nil
		},
	}
}

func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

func writeOutput(path string, raw []byte) error {
	if strings.TrimSpace(path) == "" {
		_, err := os.Stdout.Write(raw)
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return err
	}
	printSuccess("Wrote " + path)
	return nil
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
