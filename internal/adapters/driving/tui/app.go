// Package tui implements the interactive terminal search interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/zcite-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
)

// snippetLines caps how many lines of chunk text each result shows.
const snippetLines = 3

// App is the Bubbletea model for the search interface. It has two
// focus states: typing a query, and navigating results.
type App struct {
	styles *styles.Styles
	input  textinput.Model

	search   driving.SearchService
	library  driving.LibraryService
	settings driving.SettingsService
	ctx      context.Context

	query    string
	results  []domain.FormattedResult
	cursor   int
	stats    domain.Statistics
	err      error
	ready    bool
	focused  bool // true while the input has focus
	querying bool

	width  int
	height int
}

// NewApp creates the TUI model.
func NewApp(
	search driving.SearchService,
	library driving.LibraryService,
	settings driving.SettingsService,
) *App {
	ti := textinput.New()
	ti.Placeholder = "Search your library..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return &App{
		styles:   styles.DefaultStyles(),
		input:    ti,
		search:   search,
		library:  library,
		settings: settings,
		ctx:      context.Background(),
		focused:  true,
		width:    80,
		height:   24,
	}
}

// WithContext sets the context used for searches.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init loads index statistics and starts the cursor blink.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.loadStats())
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(20, msg.Width-12)
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case searchCompleted:
		a.querying = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.query = msg.query
		a.results = msg.results
		a.cursor = 0
		a.focused = false
		a.input.Blur()
		return a, nil

	case statsLoaded:
		if msg.err == nil {
			a.stats = msg.stats
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	if a.focused {
		switch msg.Type {
		case tea.KeyEnter:
			query := strings.TrimSpace(a.input.Value())
			if query == "" {
				return a, nil
			}
			a.querying = true
			return a, a.performSearch(query)
		case tea.KeyEsc:
			return a, tea.Quit
		default:
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}

	// Results mode.
	switch msg.String() {
	case "q", "esc":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.results)-1 {
			a.cursor++
		}
	case "/", "n":
		a.focused = true
		a.input.Reset()
		return a, a.input.Focus()
	}
	return a, nil
}

// performSearch runs the query off the Update loop.
func (a *App) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		opts := domain.SearchOptions{}
		if settings, err := a.settings.Get(); err == nil {
			opts.Limit = settings.Search.Limit
			opts.Threshold = settings.Search.Threshold
			opts.LibraryIDs = settings.Search.LibraryIDs
		}

		results, err := a.search.Search(a.ctx, query, opts)
		if err != nil {
			return searchCompleted{query: query, err: err}
		}
		return searchCompleted{query: query, results: a.search.FormatResults(results)}
	}
}

func (a *App) loadStats() tea.Cmd {
	return func() tea.Msg {
		stats, err := a.library.Statistics(a.ctx)
		return statsLoaded{stats: stats, err: err}
	}
}

// View renders the interface.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder

	header := a.styles.Title.Render("zcite")
	input := a.styles.InputField.Render(a.input.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, header, " ", input))
	b.WriteString("\n\n")

	switch {
	case a.err != nil:
		b.WriteString(a.styles.Error.Render("Error: " + a.err.Error()))
		b.WriteString("\n")
	case a.querying:
		b.WriteString(a.styles.Muted.Render("Searching..."))
		b.WriteString("\n")
	case a.query != "" && len(a.results) == 0:
		b.WriteString(a.styles.Muted.Render(fmt.Sprintf("No results for %q", a.query)))
		b.WriteString("\n")
	default:
		b.WriteString(a.renderResults())
	}

	b.WriteString("\n")
	b.WriteString(a.renderStatusBar())
	return b.String()
}

func (a *App) renderResults() string {
	var b strings.Builder
	for i, r := range a.results {
		line := fmt.Sprintf("%s — %s", r.Title, r.Authors)
		score := a.styles.Score.Render(fmt.Sprintf("%3d%%", r.Similarity))
		if i == a.cursor {
			b.WriteString(score + " " + a.styles.Selected.Render(line))
		} else {
			b.WriteString(score + " " + a.styles.Normal.Render(line))
		}
		b.WriteString("\n")

		if i == a.cursor {
			snippet := a.search.Highlight(r.Text, a.query)
			for n, text := range strings.Split(snippet, "\n") {
				if n >= snippetLines {
					break
				}
				b.WriteString("     " + a.styles.Muted.Render(truncateLine(text, a.width-6)))
				b.WriteString("\n")
			}
			meta := fmt.Sprintf("page %d", r.Metadata.PageNumber)
			if r.Metadata.Section != "" {
				meta += " · " + r.Metadata.Section
			}
			b.WriteString("     " + a.styles.Muted.Render(meta))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a *App) renderStatusBar() string {
	left := fmt.Sprintf("%d libraries · %d documents · %d chunks",
		a.stats.Libraries, a.stats.Documents, a.stats.Chunks)

	help := "enter: search · esc: quit"
	if !a.focused {
		help = "j/k: navigate · /: new search · q: quit"
	}

	return a.styles.StatusBar.Render(left + "   " + help)
}

// Run starts the TUI and blocks until it exits.
func Run(ctx context.Context, app *App) error {
	program := tea.NewProgram(app.WithContext(ctx), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func truncateLine(s string, width int) string {
	if width < 4 {
		width = 4
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
