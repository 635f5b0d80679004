package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

var htmlTag = regexp.MustCompile(`</?[a-z]+>`)

// Console implementa ports.Notifier escribiendo cada mensaje en una línea
// con timestamp. Las etiquetas HTML de Telegram se eliminan.
type Console struct {
	out io.Writer
	now func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, now: time.Now}
}

// Notify implementa ports.Notifier.
func (c *Console) Notify(_ context.Context, text string) error {
	text = htmlTag.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", "\n           ")
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", c.now().Format("15:04:05"), text)
	return err
}

// PrintReport imprime el estado del bot: ventanas, totales, apuestas
// abiertas y martingalas activas. recent puede ser nil (sin diario).
func (c *Console) PrintReport(st *domain.State, windows []domain.WindowReport, recent []domain.Settlement) {
	l := st.Statistics

	fmt.Fprintf(c.out, "\n=== STREAKBOT REPORT (%s) ===\n", c.now().UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(c.out, "  Total: %d bets | %dW / %dL | win rate %.1f%% | profit $%s | max loss streak %d\n\n",
		l.TotalBets, l.Wins, l.Losses, l.WinRate()*100, l.TotalProfit.StringFixed(2), l.MaxLossStreak)

	if len(windows) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Window", "Bets", "W", "L", "Win%", "Profit", "MaxLS")
		for _, w := range windows {
			table.Append(
				domain.WindowKey(w.Window),
				fmt.Sprintf("%d", w.Bets),
				fmt.Sprintf("%d", w.Wins),
				fmt.Sprintf("%d", w.Losses),
				fmt.Sprintf("%.1f", w.WinRate*100),
				"$"+w.Profit.StringFixed(2),
				fmt.Sprintf("%d", w.MaxLossStreak),
			)
		}
		table.Render()
	}

	c.printOpen(st)
	c.printLadders(st)
	if len(recent) > 0 {
		c.printRecent(recent)
	}
}

func (c *Console) printOpen(st *domain.State) {
	fmt.Fprintf(c.out, "\n  Open bets: %d\n", len(st.OpenBets))
	if len(st.OpenBets) == 0 {
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "Bucket", "Side", "Stake", "Entry", "Opened", "Paper")
	for _, a := range st.OpenAssets() {
		b := st.OpenBets[a]
		table.Append(
			string(a),
			b.Bucket.Start().UTC().Format("01-02 15:04"),
			string(b.Side),
			"$"+b.Stake.StringFixed(2),
			b.EntryPrice.String(),
			b.OpenedAt.UTC().Format("01-02 15:04:05"),
			yesNo(b.Paper),
		)
	}
	table.Render()
}

func (c *Console) printLadders(st *domain.State) {
	if len(st.Martingale) == 0 {
		return
	}
	assets := make([]domain.Asset, 0, len(st.Martingale))
	for a := range st.Martingale {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })

	fmt.Fprintf(c.out, "\n  Martingale ladders: %d\n", len(assets))
	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "Side", "Next stake", "Losses")
	for _, a := range assets {
		l := st.Martingale[a]
		table.Append(string(a), string(l.Side), "$"+l.NextStake.StringFixed(2), fmt.Sprintf("%d", l.ConsecutiveLosses))
	}
	table.Render()
}

func (c *Console) printRecent(rows []domain.Settlement) {
	fmt.Fprintf(c.out, "\n  Recent bets (journal): %d\n", len(rows))
	table := tablewriter.NewWriter(c.out)
	table.Header("Opened", "Asset", "Side", "Stake", "Entry", "Result", "Profit")
	for _, r := range rows {
		result, profit := "open", "-"
		if r.Result != "" {
			result = string(r.Result)
			profit = "$" + r.Profit.StringFixed(2)
		}
		table.Append(
			r.Bet.OpenedAt.UTC().Format("01-02 15:04"),
			string(r.Bet.Asset),
			string(r.Bet.Side),
			"$"+r.Bet.Stake.StringFixed(2),
			r.Bet.EntryPrice.String(),
			result,
			profit,
		)
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
