package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/7tzy/marketview/internal/domain"
	mv "github.com/7tzy/marketview/pkg/marketview"
)

// Styles.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6")).Padding(0, 1)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	offlineStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	noticeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	dotStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dotOnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	popupStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).Padding(1, 3)
	formErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	formHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func (m *model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.showLogin || m.phase == loginSubmitting {
		return m.loginView()
	}
	if m.showProfile {
		return m.profileView()
	}
	return m.dashboardView()
}

// ---------------------------------------------------------------------------
// Login form
// ---------------------------------------------------------------------------

func (m *model) loginView() string {
	var b strings.Builder

	title := "marketview · sign in"
	if m.signUpMode {
		title = "marketview · create account"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString("  " + m.userInput.View() + "\n")
	b.WriteString("  " + m.passInput.View() + "\n\n")

	switch {
	case m.phase == loginSubmitting:
		b.WriteString("  " + dimStyle.Render("signing in...") + "\n")
	case m.loginErr != "":
		b.WriteString("  " + formErrStyle.Render(m.loginErr) + "\n")
	}
	if m.notice != "" {
		b.WriteString("  " + noticeStyle.Render(m.notice) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(formHintStyle.Render("  enter: submit · tab: next field · ctrl+s: toggle sign-up · esc: back"))
	return panelStyle.Render(b.String())
}

// ---------------------------------------------------------------------------
// Profile popup
// ---------------------------------------------------------------------------

func (m *model) profileView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Profile") + "\n\n")
	b.WriteString("Signed in as " + m.client.Username() + "\n\n")
	if m.countdown >= 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Logging out in %d...", m.countdown)) + "\n")
		b.WriteString(formHintStyle.Render("esc: cancel"))
	} else {
		b.WriteString(formHintStyle.Render("l: log out · esc: close"))
	}
	return popupStyle.Render(b.String())
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

func (m *model) dashboardView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("marketview"))
	who := m.client.Username()
	if who == "" {
		who = "guest"
	}
	b.WriteString("  " + dimStyle.Render(who))
	if m.notice != "" {
		b.WriteString("  " + noticeStyle.Render(m.notice))
	}
	b.WriteString("\n\n")

	if !m.prefs.ShowContent {
		b.WriteString(dimStyle.Render("Content hidden by your preferences.") + "\n")
		b.WriteString(m.footer())
		return b.String()
	}
	if len(m.slides) == 0 {
		b.WriteString(dimStyle.Render("Nothing to show.") + "\n")
		b.WriteString(m.footer())
		return b.String()
	}

	switch slide := m.currentSlide(); slide {
	case slideMarket:
		b.WriteString(m.marketView())
	case slideList:
		b.WriteString(m.listView())
	default:
		if i, ok := featuredIndex(slide); ok {
			b.WriteString(m.featuredView(i))
		}
	}

	b.WriteString("\n" + m.slideDots() + "\n")
	b.WriteString(m.footer())
	return b.String()
}

// slideDots renders one marker per slide with the active one highlighted.
func (m *model) slideDots() string {
	if len(m.slides) < 2 {
		return ""
	}
	marks := make([]string, len(m.slides))
	for i := range m.slides {
		if i == m.slider.Current() {
			marks[i] = dotOnStyle.Render("●")
		} else {
			marks[i] = dotStyle.Render("○")
		}
	}
	return "  " + strings.Join(marks, " ")
}

func (m *model) footer() string {
	profileHint := "p: profile"
	if m.phase != loginAuthenticated {
		profileHint = "p: sign in"
	}
	hints := []string{"←/→: slides", "r: refresh", profileHint, "q: quit"}
	if m.phase == loginAuthenticated && m.currentSlide() == slideList {
		hints = append([]string{"a: add ticker", "d: drop last"}, hints...)
	}
	return formHintStyle.Render("  " + strings.Join(hints, " · "))
}

// renderFetchError distinguishes deliberate offline mode from a generic
// failure.
func renderFetchError(err error) string {
	var offline *mv.OfflineError
	if errors.As(err, &offline) {
		return offlineStyle.Render(offline.Message)
	}
	return errorStyle.Render("Something went wrong, please try again")
}

func (m *model) marketView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(slideMarket) + "\n\n")

	data, ok := m.marketQ.Value()
	if err := m.marketQ.Err(); err != nil && !ok {
		b.WriteString(renderFetchError(err) + "\n")
		return panelStyle.Render(b.String())
	}
	if !ok {
		b.WriteString(dimStyle.Render("loading...") + "\n")
		return panelStyle.Render(b.String())
	}

	for _, ix := range []domain.MarketIndex{data.SP500, data.DowJones, data.Nasdaq} {
		b.WriteString(renderIndex(ix) + "\n")
	}
	if err := m.marketQ.Err(); err != nil {
		// Stale data with a failed refresh behind it.
		b.WriteString("\n" + dimStyle.Render("showing cached data") + "\n")
	}
	if spot, ok := m.spotQ.Value(); ok {
		b.WriteString("\n" + headerStyle.Render("Spotlight") + "\n")
		b.WriteString(renderQuote(spot) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("last refresh "+data.LastRefresh))
	return panelStyle.Render(b.String())
}

func (m *model) featuredView(i int) string {
	q := m.featuredQs[i]
	var b strings.Builder

	list, ok := q.Value()
	header := featuredSlides[i]
	if ok && list.Name != "" {
		header = list.Name
	}
	b.WriteString(headerStyle.Render(header) + "\n\n")

	if err := q.Err(); err != nil && !ok {
		b.WriteString(renderFetchError(err) + "\n")
		return panelStyle.Render(b.String())
	}
	if !ok {
		b.WriteString(dimStyle.Render("loading...") + "\n")
		return panelStyle.Render(b.String())
	}

	for _, s := range list.Stocks {
		b.WriteString(renderQuote(s) + "\n")
	}
	return panelStyle.Render(b.String())
}

func renderIndex(ix domain.MarketIndex) string {
	change := fmt.Sprintf("%+.2f (%+.2f%%)", ix.Change, ix.ChangePercent)
	styled := gainStyle.Render(change)
	if ix.Change < 0 {
		styled = lossStyle.Render(change)
	}
	return fmt.Sprintf("%-12s %10.2f  %s", ix.Name, ix.Value, styled)
}

func (m *model) listView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(slideList) + "\n\n")

	if m.phase != loginAuthenticated {
		b.WriteString(dimStyle.Render("Please login to change your lists") + "\n")
		b.WriteString(formHintStyle.Render("p: sign in") + "\n")
		return panelStyle.Render(b.String())
	}

	if pending := m.pending.Flush(); len(pending) > 0 {
		b.WriteString(pendingStyle.Render("pending: "+strings.Join(pending, " ")) + "\n\n")
	}
	if m.tickerInput.Focused() {
		b.WriteString("  " + m.tickerInput.View() + "\n\n")
	}

	list, ok := m.listQ.Value()
	if err := m.listQ.Err(); err != nil && !ok {
		b.WriteString(renderFetchError(err) + "\n")
		return panelStyle.Render(b.String())
	}
	if !ok || len(list.Tickers) == 0 {
		b.WriteString(dimStyle.Render("Your list is empty. Press a to add a ticker.") + "\n")
		return panelStyle.Render(b.String())
	}

	quotes := make(map[string]domain.StockQuote, len(list.Stocks))
	for _, q := range list.Stocks {
		quotes[q.Symbol] = q
	}
	for _, ticker := range list.Tickers {
		if q, found := quotes[ticker]; found {
			b.WriteString(renderQuote(q) + "\n")
		} else {
			b.WriteString(fmt.Sprintf("%-8s %s\n", ticker, dimStyle.Render("no data")))
		}
	}
	return panelStyle.Render(b.String())
}

func renderQuote(q domain.StockQuote) string {
	change := fmt.Sprintf("%+.2f (%+.2f%%)", q.Change, q.ChangePercent)
	styled := gainStyle.Render(change)
	if q.Change < 0 {
		styled = lossStyle.Render(change)
	}
	return fmt.Sprintf("%-8s %10.2f  %s", q.Symbol, q.Value, styled)
}
