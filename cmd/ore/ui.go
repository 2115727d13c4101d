package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"oremarket/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

// confirm asks a yes/no question unless yes was already given.
func confirm(label string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	answer, err := promptChoice(label, []string{"yes", "no"}, "no")
	if err != nil {
		return false, err
	}
	return answer == "yes", nil
}

func renderDashboard(d game.Dashboard) {
	p := d.Player
	accent.Printf("\n== %s (level %d) ==\n", p.Name, p.Level)
	fmt.Printf("Balance:    %s\n", money(p.Balance))
	fmt.Printf("Net Worth:  %s\n", money(d.NetWorth))
	fmt.Printf("XP:         %d / %d\n", p.XP, p.NextLevelXP)
	fmt.Printf("Tiers:      %s\n", joinTiers(p.Tiers))
	if d.Company != nil {
		fmt.Printf("Company:    %s (%s, PF %.2f)\n", d.Company.Name, money(d.Company.NetWorth), d.Company.PF)
	}
	fmt.Printf("Rarity:     %s, tick %dms\n", d.Settings.Rarity, d.Settings.TickMs)

	renderMarket(d.Market)

	open := make([]game.OrderView, 0, len(d.Orders))
	for _, o := range d.Orders {
		if o.Status != "completed" {
			open = append(open, o)
		}
	}
	accent.Println("Open orders")
	if len(open) == 0 {
		printInfo("No open orders.")
	} else {
		printOrderRows(open)
	}
	fmt.Println()

	if len(d.Investments) > 0 {
		accent.Println("Investments")
		printInvestmentRows(d.Investments)
		fmt.Println()
	}
}

func renderMarket(rows []game.ResourceView) {
	accent.Println("\n== ORE MARKET ==")
	if len(rows) == 0 {
		printInfo("No ores in the catalog.")
		return
	}
	fmt.Printf("%-12s %-4s %12s %8s %9s %7s\n", "ORE", "SYM", "PRICE", "STOCK", "SCARCITY", "EVENT")
	for _, r := range rows {
		fmt.Printf("%-12s %-4s %12s %7.1f%% %8.1f%% %7s\n",
			truncate(r.Display, 12),
			r.Symbol,
			money(r.Price),
			r.StockLevel*100,
			r.Scarcity*100,
			colorizeMultiplier(r.EventMultiplier),
		)
	}
	fmt.Println()
}

func renderResource(r game.ResourceView) {
	accent.Printf("\n== %s (%s) ==\n", r.Display, r.Symbol)
	fmt.Printf("Price:      %s\n", money(r.Price))
	fmt.Printf("Stock:      %.1f%%\n", r.StockLevel*100)
	fmt.Printf("Scarcity:   %.1f%%\n", r.Scarcity*100)
	fmt.Printf("Event:      %s\n", colorizeMultiplier(r.EventMultiplier))
	if len(r.History) > 1 {
		first, last := r.History[0], r.History[len(r.History)-1]
		fmt.Printf("Trend:      %s %s\n", sparkline(r.History, 40), colorizePercent((last-first)/first*100))
	}
	fmt.Println()
}

func renderOrders(rows []game.OrderView) {
	accent.Println("\n== ORDERS ==")
	if len(rows) == 0 {
		printInfo("No orders yet.")
		return
	}
	printOrderRows(rows)
	fmt.Println()
}

func printOrderRows(rows []game.OrderView) {
	fmt.Printf("%-40s %-10s %5s %7s %-9s %-8s %12s\n", "ID", "ORE", "TIER", "QTY", "STATUS", "OWNER", "PAYOUT")
	for _, o := range rows {
		payout := o.CurrentPayout
		if o.Status == "completed" {
			payout = o.FinalPayout
		}
		fmt.Printf("%-40s %-10s %5g %7d %-9s %-8s %12s\n",
			o.ID,
			truncate(o.Display, 10),
			o.Tier,
			o.Qty,
			colorizeStatus(o.Status),
			o.OwnerType,
			money(payout),
		)
	}
}

func renderInvestments(rows []game.InvestmentView) {
	accent.Println("\n== INVESTMENTS ==")
	if len(rows) == 0 {
		printInfo("No investments.")
		return
	}
	printInvestmentRows(rows)
	fmt.Println()
}

func printInvestmentRows(rows []game.InvestmentView) {
	fmt.Printf("%-40s %-10s %-8s %8s %10s %10s %12s %12s\n", "ID", "ORE", "OWNER", "QTY", "BUY", "NOW", "VALUE", "P/L")
	for _, inv := range rows {
		fmt.Printf("%-40s %-10s %-8s %8d %10s %10s %12s %12s\n",
			inv.ID,
			truncate(inv.Resource, 10),
			inv.OwnerType,
			inv.Qty,
			money(inv.BuyPrice),
			money(inv.CurrentPrice),
			money(inv.Value),
			colorizeMoney(inv.Unrealized),
		)
	}
}

func renderCompanies(rows []game.CompanyListing) {
	accent.Println("\n== COMPANIES ==")
	if len(rows) == 0 {
		printInfo("No companies yet.")
		return
	}
	fmt.Printf("%-40s %-20s %14s %6s %8s %-6s\n", "ID", "NAME", "NET WORTH", "PF", "MEMBERS", "JOINED")
	for _, c := range rows {
		joined := ""
		if c.Joined {
			joined = "yes"
		}
		fmt.Printf("%-40s %-20s %14s %6.2f %8d %-6s\n",
			c.ID,
			truncate(c.Name, 20),
			money(c.NetWorth),
			c.PF,
			len(c.Members),
			joined,
		)
	}
	fmt.Println()
}

func renderLeaderboard(lb game.Leaderboard) {
	printRanking("PLAYERS", lb.Players, true)
	printRanking("COMPANIES", lb.Companies, false)
}

func printRanking(title string, rows []game.LeaderboardRow, withLevel bool) {
	accent.Printf("\n== %s ==\n", title)
	if len(rows) == 0 {
		printInfo("No leaderboard rows yet.")
		return
	}
	fmt.Printf("%-6s %-22s %6s %16s\n", "RANK", "NAME", "LEVEL", "NET WORTH")
	for _, row := range rows {
		level := ""
		if withLevel {
			level = strconv.Itoa(row.Level)
		}
		line := fmt.Sprintf("%-6d %-22s %6s %16s", row.Rank, truncate(row.Name, 22), level, money(row.NetWorth))
		if row.You {
			success.Println(line)
			continue
		}
		fmt.Println(line)
	}
}

func renderSettings(s game.Settings, webhook bool) {
	accent.Println("\n== SETTINGS ==")
	fmt.Printf("Auto tick:    %t\n", s.AutoTick)
	fmt.Printf("Auto orders:  %t\n", s.AutoOrders)
	fmt.Printf("Tick:         %dms\n", s.TickMs)
	fmt.Printf("Rarity:       %s\n", s.Rarity)
	if webhook {
		fmt.Println("Webhook:      configured")
	}
	fmt.Println()
}

func colorizeMultiplier(v float64) string {
	text := fmt.Sprintf("x%.2f", v)
	switch {
	case v > 1.005:
		return success.Sprint(text)
	case v < 0.995:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeStatus(s string) string {
	switch s {
	case "completed":
		return success.Sprint(s)
	case "accepted":
		return warn.Sprint(s)
	default:
		return s
	}
}

func colorizeMoney(v float64) string {
	text := money(v)
	if v > 0 {
		text = "+" + text
	}
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(math.Round(v * 100))
	return fmt.Sprintf("%s$%s.%02d", sign, comma(cents/100), cents%100)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the last width points.
func sparkline(points []float64, width int) string {
	if len(points) > width {
		points = points[len(points)-width:]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	var b strings.Builder
	for _, p := range points {
		i := 0
		if hi > lo {
			i = int((p - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		b.WriteRune(sparkBlocks[i])
	}
	return b.String()
}

func joinTiers(tiers []float64) string {
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = strconv.FormatFloat(t, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
