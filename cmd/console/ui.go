package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/galgame-engine/internal/engine"
	"github.com/jwebster45206/galgame-engine/pkg/parser"
)

const (
	PlaceHolderText = "Type your message, or a number to pick an option..."
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	chatViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	history []string

	// Relationship economy shown in the status bar.
	affection    int
	trust        int
	gold         int
	relationship string
	inGame       bool

	// Last offered choice, resolvable by number keys.
	offerID string
	options []parser.Option
	event   *parser.EventOffer
}

type turnMsg struct {
	turn *MessageResponse
	err  error
}

type resetMsg struct {
	err error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(2).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	characterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		client:       client,
		textarea:     ta,
		chatViewport: chatVp,
		history:      []string{titleStyle.Render("GALGAME ENGINE"), ""},
	}
}

type statusMsg struct {
	status *engine.Status
	err    error
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.statusCmd())
}

func (m ConsoleUI) statusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := getStatus(m.client, m.config)
		return statusMsg{status: status, err: err}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
	)
	m.textarea, taCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chatViewport.Width = msg.Width - 4
		m.chatViewport.Height = msg.Height - 8
		m.textarea.SetWidth(msg.Width - 4)
		m.ready = true
		m.refreshChat()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.loading = true
			return m, m.resetCmd()
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.history = append(m.history, userStyle.Render("你："+text), "")
			m.loading = true
			m.refreshChat()

			// A bare number answers the pending offer.
			if n, err := strconv.Atoi(text); err == nil && m.offerID != "" {
				return m, m.choiceCmd(m.offerID, n)
			}
			return m, m.sendCmd(text)
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.history = append(m.history, errorStyle.Render("错误："+msg.err.Error()), "")
			m.refreshChat()
			return m, nil
		}
		m.err = nil
		m.applyTurn(msg.turn)
		m.refreshChat()

	case statusMsg:
		if msg.err == nil && msg.status != nil {
			m.affection = msg.status.Affection
			m.trust = msg.status.Trust
			m.gold = msg.status.Gold
			m.relationship = msg.status.Relationship
			m.inGame = msg.status.InGame
			if msg.status.Name != "" {
				m.history = append(m.history, promptStyle.Render("（继续与 "+msg.status.Name+" 的故事）"), "")
				m.refreshChat()
			}
		}

	case resetMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.history = []string{titleStyle.Render("GALGAME ENGINE"), "", "（游戏已重置，发送任意消息重新开始）", ""}
			m.offerID = ""
			m.options = nil
			m.event = nil
		}
		m.refreshChat()
	}

	return m, tea.Batch(taCmd, vpCmd)
}

func (m *ConsoleUI) applyTurn(turn *MessageResponse) {
	if turn.Opening != "" {
		m.history = append(m.history, characterStyle.Render(turn.Opening), "")
	}
	if turn.Narrative != "" {
		m.history = append(m.history, characterStyle.Render(turn.Narrative), "")
	}
	if turn.Outcome != "" {
		verdict := "失败"
		if turn.Outcome == "success" {
			verdict = "成功"
		}
		m.history = append(m.history, optionStyle.Render(
			fmt.Sprintf("【事件结算】%s：%s（好感 %+d）", turn.EventName, verdict, turn.AffectionDelta)), "")
	}

	m.offerID = turn.OfferID
	m.options = turn.Options
	m.event = turn.Event

	if turn.Event != nil {
		m.history = append(m.history, optionStyle.Render(
			fmt.Sprintf("【事件】%s（成功率 %d%%）", turn.Event.Description, turn.Event.SuccessRate)))
		for _, opt := range turn.EventOptions {
			m.history = append(m.history, optionStyle.Render(fmt.Sprintf("  %d. %s", opt.Index, opt.Text)))
		}
		m.history = append(m.history, "")
	} else if len(turn.Options) > 0 {
		for _, opt := range turn.Options {
			m.history = append(m.history, optionStyle.Render(fmt.Sprintf("  %d. %s", opt.Index, opt.Text)))
		}
		m.history = append(m.history, "")
	}

	m.affection = turn.Affection
	m.trust = turn.Trust
	m.gold = turn.Gold
	m.relationship = turn.Relationship
	m.inGame = true
}

func (m *ConsoleUI) refreshChat() {
	m.chatViewport.SetContent(strings.Join(m.history, "\n"))
	m.chatViewport.GotoBottom()
}

func (m ConsoleUI) statusBar() string {
	if !m.inGame {
		return statusBarStyle.Render("尚未进入游戏 · 发送任意消息开始 · Ctrl+R 重置 · Esc 退出")
	}
	return statusBarStyle.Render(fmt.Sprintf(
		"好感 %d (%s) · 信任 %d · 金币 %d · Ctrl+R 重置 · Esc 退出",
		m.affection, m.relationship, m.trust, m.gold))
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Loading..."
	}

	var footer string
	if m.loading {
		footer = loadingStyle.Render("…她正在输入…")
	} else {
		footer = m.textarea.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		chatPanelStyle.Render(m.chatViewport.View()),
		m.statusBar(),
		footer,
	)
}

func (m ConsoleUI) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		turn, err := sendMessage(m.client, m.config, text)
		return turnMsg{turn: turn, err: err}
	}
}

func (m ConsoleUI) choiceCmd(offerID string, optionIndex int) tea.Cmd {
	return func() tea.Msg {
		turn, err := sendChoice(m.client, m.config, offerID, optionIndex)
		return turnMsg{turn: turn, err: err}
	}
}

func (m ConsoleUI) resetCmd() tea.Cmd {
	return func() tea.Msg {
		return resetMsg{err: resetSession(m.client, m.config)}
	}
}
