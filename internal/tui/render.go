package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/bodhiwallet/internal/dashboard"
	"github.com/jask/bodhiwallet/internal/market"
	"github.com/jask/bodhiwallet/internal/state"
)

var (
	colorBrand   = lipgloss.Color("#89b4fa")
	colorAccent  = lipgloss.Color("#f5c2e7")
	colorText    = lipgloss.Color("#cdd6f4")
	colorMuted   = lipgloss.Color("#7f849c")
	colorSurface = lipgloss.Color("#313244")
	colorMantle  = lipgloss.Color("#181825")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorYellow  = lipgloss.Color("#f9e2af")
	colorRed     = lipgloss.Color("#f38ba8")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)

	headerBarStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorMantle).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Background(colorSurface).
			Bold(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface).
			Padding(0, 1)

	selectedCardStyle = cardStyle.BorderForeground(colorAccent)

	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	buttonStyle   = lipgloss.NewStyle().Foreground(colorMantle).Background(colorBrand).Padding(0, 1)
	winningStyle  = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	snackbarStyle = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface).Padding(0, 2)
	modalStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBrand).Padding(0, 1)
	helpKeyStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(colorMuted)
	footerStyle   = lipgloss.NewStyle().Background(colorMantle).Padding(0, 2)
)

const barWidth = 20

func (a *App) View() string {
	parts := []string{a.renderHeader(), a.renderNav(), a.renderTabs(), a.renderBody()}
	if a.searching || a.search.Value() != "" {
		parts = append(parts, a.search.View())
	}
	switch {
	case a.snap.WalletUnlockDialogVisible:
		parts = append(parts, a.renderUnlock())
	case a.snap.CreateEventDialogVisible:
		parts = append(parts, a.renderCreateEvent())
	}
	if line := a.renderStatus(); line != "" {
		parts = append(parts, line)
	}
	if a.snap.PendingTxsSnackbarVisible {
		parts = append(parts, a.renderSnackbar())
	}
	parts = append(parts, a.renderFooter(a.keys.HelpBindings(a.scope())))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderHeader() string {
	s := a.snap
	lock := "unlocked"
	if !s.WalletUnlocked(time.Now()) {
		lock = "locked"
	}
	left := titleStyle.Render("Bodhi")
	var right string
	if s.Collapsed {
		right = fmt.Sprintf("%s  %s", s.FormatBalance(), lock)
	} else {
		right = fmt.Sprintf("%s  block %d (%.0f%%)  %s", s.FormatBalance(), s.SyncBlockNum, s.SyncPercent, lock)
		if s.LastUsedAddress != "" {
			right = s.LastUsedAddress + "  " + right
		}
	}
	content := left + "  " + right
	if a.width == 0 {
		return headerBarStyle.Render(content)
	}
	return headerBarStyle.Width(a.width).Render(content)
}

func (a *App) renderNav() string {
	current := a.snap.AppLocation.Section()
	items := make([]string, 0, len(state.NavSections))
	for _, sec := range state.NavSections {
		if sec == current {
			items = append(items, activeTabStyle.Render(string(sec)))
		} else {
			items = append(items, inactiveTabStyle.Render(string(sec)))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, items...)
}

func (a *App) renderTabs() string {
	tabs := make([]string, 0, len(dashboard.Tabs))
	for i, t := range dashboard.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == a.dash.Tab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	sort := "▲ " + string(market.Ascending)
	if a.dash.Sort == market.Descending {
		sort = "▼ " + string(market.Descending)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append(tabs, mutedStyle.Render("  "+sort))...)
}

func (a *App) renderBody() string {
	if a.snap.AppLocation == state.LocationMyWallet {
		return a.renderWallet()
	}
	if a.loading && len(a.cards) == 0 {
		return mutedStyle.Render("loading...")
	}
	cards := a.visibleCards()
	if len(cards) == 0 {
		return mutedStyle.Render(dashboard.EmptyMessage)
	}

	perRow := 1
	switch a.snap.View {
	case state.DesktopView:
		perRow = 3
	case state.TabletView:
		perRow = 2
	}
	width := 0
	if a.width > 0 {
		width = a.width/perRow - 2
	}

	var rows []string
	for start := 0; start < len(cards); start += perRow {
		end := min(start+perRow, len(cards))
		row := make([]string, 0, perRow)
		for i := start; i < end; i++ {
			row = append(row, a.renderCard(cards[i], i == a.cursor, width))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) renderWallet() string {
	list := a.snap.WalletAddresses
	if len(list) == 0 {
		return mutedStyle.Render("No wallet addresses.")
	}
	lines := make([]string, 0, len(list))
	for _, addr := range list {
		line := fmt.Sprintf("%s  %s QTUM  %s BOT", addr.Address, market.FormatAmount(addr.Qtum), market.FormatAmount(addr.Bot))
		if addr.Address == a.snap.LastUsedAddress {
			line = winningStyle.Render(line + " *")
		}
		lines = append(lines, line)
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderCard(c dashboard.Card, selected bool, width int) string {
	lines := []string{titleStyle.Render(c.Title)}
	for _, d := range c.Details(a.opts.Location) {
		lines = append(lines, mutedStyle.Render(d))
	}
	if !a.snap.Collapsed {
		for _, o := range c.Options {
			lines = append(lines, renderOption(o))
		}
	}
	lines = append(lines, buttonStyle.Render(c.Button))

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func renderOption(o dashboard.OptionBar) string {
	label := o.Label
	if o.Winning {
		label = winningStyle.Render(label + " (winner)")
	}
	line := fmt.Sprintf("%s\n%s %3d%%", label, bar(o.Percent), o.Percent)
	if o.HasSecondary {
		line += fmt.Sprintf("  %s %3d%%", bar(o.SecondaryPercent), o.SecondaryPercent)
	}
	if o.Value != "" {
		line += "  " + mutedStyle.Render(o.Value)
	}
	return line
}

func bar(percent int64) string {
	filled := int(percent) * barWidth / 100
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func (a *App) renderUnlock() string {
	body := titleStyle.Render("Unlock wallet") + "\n" +
		fmt.Sprintf("Unlock for %s to send transactions.\n", a.opts.UnlockFor) +
		a.pass.View()
	return modalStyle.Render(body)
}

func (a *App) renderCreateEvent() string {
	s := a.snap
	body := titleStyle.Render("Create event") + "\n"
	if addr, ok := s.Address(s.LastUsedAddress); ok {
		body += fmt.Sprintf("Creator: %s\nBalance: %s QTUM / %s BOT\n",
			addr.Address, market.FormatAmount(addr.Qtum), market.FormatAmount(addr.Bot))
	} else {
		body += "No wallet address available.\n"
	}
	body += mutedStyle.Render("Events are created from the full wallet.")
	return modalStyle.Render(body)
}

func (a *App) renderStatus() string {
	switch {
	case a.snap.ErrorApp != nil:
		return errorStyle.Render("error: " + a.snap.ErrorApp.Error())
	case a.snap.SyncInfoError != nil && a.snap.SyncBlockNum == 0:
		return errorStyle.Render("sync: " + a.snap.SyncInfoError.Error())
	case a.status != "":
		return mutedStyle.Render(strings.ReplaceAll(a.status, "\n", " "))
	}
	return ""
}

func (a *App) renderSnackbar() string {
	s := a.snap
	text := fmt.Sprintf("Synced block %d (%.0f%%)", s.SyncBlockNum, s.SyncPercent)
	if s.SyncPercent < 100 {
		text = fmt.Sprintf("Syncing... block %d (%.0f%%)", s.SyncBlockNum, s.SyncPercent)
	}
	if s.AverageBlockTime > 0 {
		text += fmt.Sprintf("  avg block time %.0fs", s.AverageBlockTime)
	}
	return snackbarStyle.Render(text)
}

func (a *App) renderFooter(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, helpKeyStyle.Render(help.Key)+" "+helpDescStyle.Render(help.Desc))
	}
	content := strings.Join(parts, "  ")
	if a.width == 0 {
		return footerStyle.Render(content)
	}
	return footerStyle.Width(a.width).Render(content)
}
