package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/websocket"
	"github.com/joho/godotenv"

	"github.com/7tzy/marketview/internal/carousel"
	"github.com/7tzy/marketview/internal/config"
	"github.com/7tzy/marketview/internal/domain"
	"github.com/7tzy/marketview/internal/query"
	"github.com/7tzy/marketview/internal/tickercache"
	"github.com/7tzy/marketview/internal/util"
	mv "github.com/7tzy/marketview/pkg/marketview"
)

// logoutCountdown is the number of seconds the profile popup counts down
// before the logout request fires.
const logoutCountdown = 5

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type tickMsg time.Time

type marketMsg struct {
	data   domain.MarketData
	err    error
	manual bool
}

type listMsg struct {
	list   mv.UserList
	err    error
	manual bool
}

type featuredMsg struct {
	index  int
	list   mv.StockList
	err    error
	manual bool
}

type spotMsg struct {
	quote domain.StockQuote
	err   error
}

type prefsMsg struct {
	prefs mv.Preferences
	err   error
}

type loginMsg struct {
	result mv.LoginResult
	err    error
}

type signUpMsg struct {
	result mv.LoginResult
	err    error
}

type loggedOutMsg struct{ err error }

type logoutTickMsg struct{}

type refreshEventMsg struct{}

type liveClosedMsg struct{ err error }

type noticeExpiredMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

type loginPhase int

const (
	loginAnonymous loginPhase = iota
	loginSubmitting
	loginAuthenticated
)

// slide identifiers; the visible set depends on preferences.
const (
	slideMarket = "Market Overview"
	slideList   = "My Stock List"
)

// featuredSlides are the curated-list slides between the market overview
// and the personal list. Panel headers show the fetched list name.
var featuredSlides = [...]string{"Featured List 1", "Featured List 2", "Featured List 3"}

// spotlightSymbols is the pool the market slide's random spotlight quote
// draws from.
var spotlightSymbols = []string{"AAPL", "MSFT", "TSLA", "NVDA", "AMZN", "META", "GOOGL"}

type model struct {
	client  *mv.Client
	logger  *slog.Logger
	prefs   mv.Preferences
	slider  *carousel.Carousel
	slides  []string
	pending *tickercache.Cache

	marketQ    *query.Query[domain.MarketData]
	listQ      *query.Query[mv.UserList]
	featuredQs []*query.Query[mv.StockList]
	spotQ      *query.Query[domain.StockQuote]
	runner     *query.Runner

	// Login form, shown as an overlay; the dashboard itself is browsable
	// anonymously.
	phase      loginPhase
	showLogin  bool
	userInput  textinput.Model
	passInput  textinput.Model
	signUpMode bool
	loginErr   string

	// Ticker entry.
	tickerInput textinput.Model

	// Profile popup with logout countdown; -1 means not counting.
	showProfile bool
	countdown   int

	notice        string
	width, height int
	ready         bool

	wsCancel context.CancelFunc
}

func initialModel(client *mv.Client, cachePath string, logger *slog.Logger) *model {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 32
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 64
	pass.EchoMode = textinput.EchoPassword

	ticker := textinput.New()
	ticker.Placeholder = "add ticker"
	ticker.CharLimit = 8

	m := &model{
		client:      client,
		logger:      logger,
		prefs:       domain.DefaultPreferences(),
		slider:      carousel.New(0),
		pending:     tickercache.New(cachePath, logger),
		userInput:   user,
		passInput:   pass,
		tickerInput: ticker,
		countdown:   -1,
		runner:      query.NewRunner(query.RefetchEvery),
	}

	m.marketQ = query.New("market-data", func(ctx context.Context) (domain.MarketData, error) {
		return client.MarketData(ctx)
	})
	m.marketQ.Enabled = func() bool {
		return m.prefs.ShowContent && m.prefs.ShowMarketOverview
	}
	m.listQ = query.New("user-stock-list", func(ctx context.Context) (mv.UserList, error) {
		return client.UserList(ctx)
	})
	m.listQ.Enabled = func() bool {
		return m.prefs.ShowContent && m.client.LoggedIn()
	}
	m.spotQ = query.New("random-stock", func(ctx context.Context) (domain.StockQuote, error) {
		return client.RandomStock(ctx, spotlightSymbols[rand.Intn(len(spotlightSymbols))])
	})
	m.spotQ.Enabled = func() bool {
		return m.prefs.ShowContent && m.prefs.ShowMarketOverview
	}
	query.Add(m.runner, m.marketQ)
	query.Add(m.runner, m.listQ)
	query.Add(m.runner, m.spotQ)

	// One query per featured list, issued only while that list's slide is
	// the active one.
	m.featuredQs = make([]*query.Query[mv.StockList], len(featuredSlides))
	for i := range featuredSlides {
		n := i + 1
		slide := featuredSlides[i]
		q := query.New(fmt.Sprintf("stock-lists/%d", n), func(ctx context.Context) (mv.StockList, error) {
			return client.FeaturedList(ctx, n)
		})
		q.Enabled = func() bool {
			return m.prefs.ShowContent && m.currentSlide() == slide
		}
		m.featuredQs[i] = q
		query.Add(m.runner, q)
	}

	m.rebuildSlides()
	return m
}

// rebuildSlides recomputes the visible slide set from preferences. The
// slider keeps its position when the set is unchanged and clamps when it
// shrinks.
func (m *model) rebuildSlides() {
	var slides []string
	if m.prefs.ShowContent {
		if m.prefs.ShowMarketOverview {
			slides = append(slides, slideMarket)
		}
		slides = append(slides, featuredSlides[:]...)
		slides = append(slides, slideList)
	}
	m.slides = slides
	m.slider.SetSlideCount(len(slides))
}

func (m *model) Init() tea.Cmd {
	m.pending.StartSweeper()
	// No preferences fetch here: anonymous sessions use the hard-coded
	// defaults without touching the network.
	return tea.Batch(tickCmd(), m.fetchActive(), m.listenLive())
}

// teardown stops everything the model started.
func (m *model) teardown() {
	m.pending.Stop()
	m.runner.Close()
	if m.wsCancel != nil {
		m.wsCancel()
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func (m *model) fetchPrefs() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		prefs, err := client.Preferences(context.Background())
		return prefsMsg{prefs: prefs, err: err}
	}
}

func (m *model) fetchMarket() tea.Cmd {
	q := m.marketQ
	return func() tea.Msg {
		data, err := q.Result(context.Background())
		return marketMsg{data: data, err: err}
	}
}

func (m *model) refreshMarket(manual bool) tea.Cmd {
	q := m.marketQ
	return func() tea.Msg {
		data, err := q.Refresh(context.Background())
		return marketMsg{data: data, err: err, manual: manual}
	}
}

func (m *model) fetchList() tea.Cmd {
	q := m.listQ
	return func() tea.Msg {
		list, err := q.Result(context.Background())
		return listMsg{list: list, err: err}
	}
}

func (m *model) refreshList(manual bool) tea.Cmd {
	q := m.listQ
	return func() tea.Msg {
		list, err := q.Refresh(context.Background())
		return listMsg{list: list, err: err, manual: manual}
	}
}

func (m *model) fetchFeatured(i int) tea.Cmd {
	q := m.featuredQs[i]
	return func() tea.Msg {
		list, err := q.Result(context.Background())
		return featuredMsg{index: i, list: list, err: err}
	}
}

func (m *model) refreshFeatured(i int) tea.Cmd {
	q := m.featuredQs[i]
	return func() tea.Msg {
		list, err := q.Refresh(context.Background())
		return featuredMsg{index: i, list: list, err: err, manual: true}
	}
}

func (m *model) fetchSpot() tea.Cmd {
	q := m.spotQ
	return func() tea.Msg {
		quote, err := q.Result(context.Background())
		return spotMsg{quote: quote, err: err}
	}
}

// fetchActive issues the queries behind the currently visible slide. Fresh
// cached values are served without a request.
func (m *model) fetchActive() tea.Cmd {
	switch slide := m.currentSlide(); slide {
	case slideMarket:
		return tea.Batch(m.fetchMarket(), m.fetchSpot())
	case slideList:
		return m.fetchList()
	default:
		if i, ok := featuredIndex(slide); ok {
			return m.fetchFeatured(i)
		}
	}
	return nil
}

// refreshActive re-issues the market query unconditionally, plus whatever
// the active slide shows, and surfaces the outcome in the notice line.
func (m *model) refreshActive() tea.Cmd {
	cmds := []tea.Cmd{m.refreshMarket(true)}
	switch slide := m.currentSlide(); slide {
	case slideList:
		cmds = append(cmds, m.refreshList(true))
	default:
		if i, ok := featuredIndex(slide); ok {
			cmds = append(cmds, m.refreshFeatured(i))
		}
	}
	return tea.Batch(cmds...)
}

// featuredIndex maps a featured slide name to its query index.
func featuredIndex(slide string) (int, bool) {
	for i, name := range featuredSlides {
		if name == slide {
			return i, true
		}
	}
	return 0, false
}

// noteRefresh reports a manual refresh outcome. A failure notice is not
// overwritten by a later success from the same batch.
func (m *model) noteRefresh(err error) tea.Cmd {
	if err != nil {
		m.notice = "Refresh failed"
	} else if m.notice != "Refresh failed" {
		m.notice = "Refreshed"
	}
	return noticeCmd()
}

func (m *model) submitLogin() tea.Cmd {
	client := m.client
	username := strings.TrimSpace(m.userInput.Value())
	password := m.passInput.Value()
	if m.signUpMode {
		return func() tea.Msg {
			res, err := client.SignUp(context.Background(), username, password)
			return signUpMsg{result: res, err: err}
		}
	}
	return func() tea.Msg {
		res, err := client.Login(context.Background(), username, password, false)
		return loginMsg{result: res, err: err}
	}
}

func (m *model) submitLogout() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return loggedOutMsg{err: client.Logout(context.Background())}
	}
}

func (m *model) addTicker() tea.Cmd {
	ticker := strings.ToUpper(strings.TrimSpace(m.tickerInput.Value()))
	if ticker == "" {
		return nil
	}
	m.pending.Add(ticker)
	m.tickerInput.SetValue("")
	client := m.client
	q := m.listQ
	return func() tea.Msg {
		if _, err := client.AddTickers(context.Background(), ticker); err != nil {
			return listMsg{err: err}
		}
		list, err := q.Refresh(context.Background())
		return listMsg{list: list, err: err}
	}
}

func (m *model) removeTicker(ticker string) tea.Cmd {
	m.pending.Remove(ticker)
	client := m.client
	q := m.listQ
	return func() tea.Msg {
		if _, err := client.RemoveTicker(context.Background(), ticker); err != nil {
			return listMsg{err: err}
		}
		list, err := q.Refresh(context.Background())
		return listMsg{list: list, err: err}
	}
}

func logoutTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return logoutTickMsg{}
	})
}

func noticeCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return noticeExpiredMsg{}
	})
}

// listenLive subscribes to the server's refresh channel. Each
// market-refresh event invalidates the market query so the next render
// refetches.
func (m *model) listenLive() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.wsCancel = cancel
	url := strings.Replace(m.client.BaseURL(), "http", "ws", 1) + "/api/live"
	logger := m.logger
	return func() tea.Msg {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return liveClosedMsg{err: err}
		}
		defer conn.CloseNow()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return liveClosedMsg{err: err}
			}
			if strings.Contains(string(data), "market-refresh") {
				logger.Info("live refresh event")
				return refreshEventMsg{}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		// Redraw each second so pending-ticker expiry and the logout
		// countdown stay current.
		return m, tickCmd()

	case prefsMsg:
		if msg.err == nil {
			m.prefs = msg.prefs
		} else {
			// Preference fetch failures fall back to defaults silently.
			m.prefs = domain.DefaultPreferences()
		}
		m.rebuildSlides()
		return m, tea.Batch(m.fetchActive(), m.fetchList())

	case marketMsg:
		if msg.manual {
			return m, m.noteRefresh(msg.err)
		}
		return m, nil

	case listMsg:
		if msg.manual {
			return m, m.noteRefresh(msg.err)
		}
		return m, nil

	case featuredMsg:
		if msg.manual {
			return m, m.noteRefresh(msg.err)
		}
		return m, nil

	case spotMsg:
		return m, nil

	case loginMsg:
		if msg.err != nil {
			m.phase = loginAnonymous
			m.loginErr = loginErrorText(msg.err)
			return m, nil
		}
		m.phase = loginAuthenticated
		m.showLogin = false
		m.loginErr = ""
		m.passInput.SetValue("")
		return m, tea.Batch(m.fetchPrefs(), m.refreshList(false))

	case signUpMsg:
		m.phase = loginAnonymous
		if msg.err != nil {
			m.loginErr = loginErrorText(msg.err)
			return m, nil
		}
		m.signUpMode = false
		m.loginErr = ""
		m.notice = msg.result.Message
		return m, noticeCmd()

	case loggedOutMsg:
		m.phase = loginAnonymous
		m.showProfile = false
		m.showLogin = false
		m.countdown = -1
		// Back to the anonymous defaults, no fetch.
		m.prefs = domain.DefaultPreferences()
		m.rebuildSlides()
		m.userInput.SetValue("")
		return m, nil

	case logoutTickMsg:
		if m.countdown < 0 {
			return m, nil
		}
		m.countdown--
		if m.countdown <= 0 {
			m.countdown = -1
			return m, m.submitLogout()
		}
		return m, logoutTickCmd()

	case refreshEventMsg:
		m.marketQ.Invalidate()
		return m, tea.Batch(m.fetchMarket(), m.listenLive())

	case liveClosedMsg:
		if msg.err != nil {
			m.logger.Warn("live channel closed", "error", msg.err)
		}
		return m, nil

	case noticeExpiredMsg:
		m.notice = ""
		return m, nil
	}

	return m, m.updateInputs(msg)
}

func (m *model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.userInput, cmd = m.userInput.Update(msg)
	cmds = append(cmds, cmd)
	m.passInput, cmd = m.passInput.Update(msg)
	cmds = append(cmds, cmd)
	m.tickerInput, cmd = m.tickerInput.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.teardown()
		return m, tea.Quit
	}

	if m.showLogin || m.phase == loginSubmitting {
		return m.handleLoginKey(msg)
	}

	// While the ticker field is focused every key belongs to the input;
	// slide navigation must not react.
	if m.tickerInput.Focused() {
		switch key {
		case "esc":
			m.tickerInput.Blur()
			return m, nil
		case "enter":
			m.tickerInput.Blur()
			return m, m.addTicker()
		default:
			var cmd tea.Cmd
			m.tickerInput, cmd = m.tickerInput.Update(msg)
			return m, cmd
		}
	}

	if m.showProfile {
		switch key {
		case "esc", "p":
			m.showProfile = false
			m.countdown = -1
			return m, nil
		case "l":
			if m.countdown < 0 {
				m.countdown = logoutCountdown
				return m, logoutTickCmd()
			}
			return m, nil
		}
		return m, nil
	}

	switch key {
	case "q":
		m.teardown()
		return m, tea.Quit
	case "left", "h":
		m.slider.Prev()
		return m, m.fetchActive()
	case "right", "l":
		m.slider.Next()
		return m, m.fetchActive()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.slider.GoTo(int(key[0]-'0') - 1)
		return m, m.fetchActive()
	case "r":
		m.notice = "Refreshing..."
		return m, tea.Batch(m.refreshActive(), noticeCmd())
	case "i", "a":
		if m.currentSlide() != slideList {
			return m, nil
		}
		if m.phase != loginAuthenticated {
			return m, m.openLogin()
		}
		m.tickerInput.Focus()
		return m, textinput.Blink
	case "d":
		if m.phase == loginAuthenticated && m.currentSlide() == slideList {
			if list, ok := m.listQ.Value(); ok && len(list.Tickers) > 0 {
				return m, m.removeTicker(list.Tickers[len(list.Tickers)-1])
			}
		}
		return m, nil
	case "p":
		if m.phase != loginAuthenticated {
			return m, m.openLogin()
		}
		m.showProfile = true
		return m, nil
	}
	return m, nil
}

// openLogin raises the login overlay over the anonymous dashboard.
func (m *model) openLogin() tea.Cmd {
	m.showLogin = true
	m.loginErr = ""
	m.passInput.Blur()
	m.userInput.Focus()
	return textinput.Blink
}

func (m *model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.phase == loginSubmitting {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.showLogin = false
		m.loginErr = ""
		return m, nil
	case "tab", "down", "up":
		if m.userInput.Focused() {
			m.userInput.Blur()
			m.passInput.Focus()
		} else {
			m.passInput.Blur()
			m.userInput.Focus()
		}
		return m, textinput.Blink
	case "ctrl+s":
		m.signUpMode = !m.signUpMode
		m.loginErr = ""
		return m, nil
	case "enter":
		if strings.TrimSpace(m.userInput.Value()) == "" || m.passInput.Value() == "" {
			m.loginErr = "Username and password required"
			return m, nil
		}
		m.phase = loginSubmitting
		m.loginErr = ""
		return m, m.submitLogin()
	}

	var cmd tea.Cmd
	if m.userInput.Focused() {
		m.userInput, cmd = m.userInput.Update(msg)
	} else {
		m.passInput, cmd = m.passInput.Update(msg)
	}
	return m, cmd
}

func (m *model) currentSlide() string {
	if len(m.slides) == 0 {
		return ""
	}
	return m.slides[m.slider.Current()]
}

// loginErrorText renders an auth failure for the form footer.
func loginErrorText(err error) string {
	var apiErr *mv.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Login failed, try again"
}

// ---------------------------------------------------------------------------
// main
// ---------------------------------------------------------------------------

func main() {
	_ = godotenv.Load()

	cfgPath := "config/marketview.yaml"
	if p := os.Getenv("MARKETVIEW_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// Keep log output off the screen.
	logPath := fmt.Sprintf("/tmp/marketview-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, cfg.Logging.Level, "text")
	util.SetDefault(logger)

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cachePath := filepath.Join(cacheDir, "marketview", "pending-tickers.json")
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "creating cache dir: %v\n", err)
		os.Exit(1)
	}

	client := mv.NewClient(cfg.Client.ServerURL)
	p := tea.NewProgram(
		initialModel(client, cachePath, logger),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
