package main

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"micctl/audio"
	"micctl/common"
	"micctl/common/logger"
	"micctl/gate"
)

const tuiRefresh = 150 * time.Millisecond

// TUI is the terminal dashboard over one AppState.
type TUI struct {
	state *AppState
	run   func(input string) ([]string, bool)

	app        *tview.Application
	headerView *tview.TextView
	statusView *tview.TextView
	routeView  *tview.TextView
	logView    *tview.TextView
	inputView  *tview.InputField

	stop    chan struct{}
	stopped atomic.Bool
}

// NewTUI lays out the dashboard and subscribes it to state changes.
func NewTUI(state *AppState) *TUI {
	t := &TUI{
		state: state,
		app:   tview.NewApplication(),
		stop:  make(chan struct{}),
	}
	t.run = func(input string) ([]string, bool) { return runCommand(state, input) }

	tview.Styles.PrimitiveBackgroundColor = tcell.ColorBlack
	tview.Styles.ContrastBackgroundColor = tcell.ColorNavy
	tview.Styles.BorderColor = tcell.ColorDarkCyan
	tview.Styles.TitleColor = tcell.ColorLightCyan
	tview.Styles.GraphicsColor = tcell.ColorDarkCyan
	tview.Styles.PrimaryTextColor = tcell.ColorLightCyan
	tview.Styles.SecondaryTextColor = tcell.ColorDarkCyan
	tview.Styles.TertiaryTextColor = tcell.ColorGray

	t.headerView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	t.headerView.SetBorder(true).SetTitle(" micctl ").SetTitleAlign(tview.AlignCenter)

	t.statusView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.statusView.SetBorder(true).SetTitle(" Engine ").SetTitleAlign(tview.AlignLeft)

	t.routeView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.routeView.SetBorder(true).SetTitle(" Route & Hotkey ").SetTitleAlign(tview.AlignLeft)

	t.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(500)
	t.logView.SetBorder(true).SetTitle(" Log ").SetTitleAlign(tview.AlignLeft)

	t.inputView = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	t.inputView.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			t.handleInput(t.inputView.GetText())
			t.inputView.SetText("")
		}
	})
	t.inputView.SetBorder(true).SetTitle(" Commands ").SetTitleAlign(tview.AlignLeft)

	side := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.statusView, 9, 0, false).
		AddItem(t.routeView, 0, 1, false)

	center := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.logView, 0, 1, false).
		AddItem(t.inputView, 3, 0, true)

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(side, 40, 0, false).
		AddItem(center, 0, 1, true)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.headerView, 3, 0, false).
		AddItem(content, 0, 1, true)
	t.app.SetRoot(root, true)

	state.AddObserver(func(change StateChange) {
		if msg, ok := change.Data.(AppMessage); ok && change.Type == common.EventMessage {
			t.appendLine(fmt.Sprintf("[darkcyan]%s[-] %s", msg.Timestamp, colorize(msg)))
		}
	})
	return t
}

// LogWriter returns a writer that routes console log output into the log
// pane.
func (t *TUI) LogWriter() io.Writer {
	return logPane{t}
}

type logPane struct{ t *TUI }

func (p logPane) Write(b []byte) (int, error) {
	line := string(b)
	p.t.queue(func() {
		io.WriteString(tview.ANSIWriter(p.t.logView), line)
		p.t.logView.ScrollToEnd()
	})
	return len(b), nil
}

// queue schedules fn on the UI goroutine. Updates after Run returned are
// dropped since nothing drains the queue anymore.
func (t *TUI) queue(fn func()) {
	if t.stopped.Load() {
		return
	}
	t.app.QueueUpdateDraw(fn)
}

// Run blocks until the user quits.
func (t *TUI) Run() error {
	logger.Info("Starting TUI...")
	go t.refreshLoop()
	defer func() {
		t.stopped.Store(true)
		close(t.stop)
	}()
	t.appendLine("[white::b]Type /help for commands[-]")
	return t.app.Run()
}

// Stop ends Run from any goroutine.
func (t *TUI) Stop() {
	t.app.Stop()
}

func (t *TUI) refreshLoop() {
	ticker := time.NewTicker(tuiRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.queue(t.refresh)
		}
	}
}

func (t *TUI) refresh() {
	st := t.state.RuntimeStatus()
	t.headerView.SetText(renderHeader(st.GateState))
	t.statusView.SetText(renderEngine(st))
	t.routeView.SetText(t.renderRoute())
}

func (t *TUI) appendLine(line string) {
	t.queue(func() {
		fmt.Fprintln(t.logView, line)
		t.logView.ScrollToEnd()
	})
}

// handleInput runs on the UI goroutine. The command itself runs on its own
// goroutine since starting the engine can take seconds.
func (t *TUI) handleInput(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	fmt.Fprintf(t.logView, "[yellow]> %s[-]\n", tview.Escape(input))
	t.logView.ScrollToEnd()

	go func() {
		lines, quit := t.run(input)
		if len(lines) > 0 {
			t.appendLine(strings.Join(lines, "\n"))
		}
		if quit {
			t.app.Stop()
		}
	}()
}

func colorize(msg AppMessage) string {
	text := tview.Escape(msg.Message)
	switch msg.Type {
	case "error":
		return "[red]" + text + "[-]"
	case "success":
		return "[lightgreen]" + text + "[-]"
	default:
		return text
	}
}

func renderHeader(g gate.State) string {
	state := "[red::b]MIC CLOSED[-:-:-]"
	if g.IsOpen {
		state = "[lightgreen::b]MIC OPEN[-:-:-]"
	}
	return fmt.Sprintf("%s • mode [yellow]%s[-] • last [lightblue]%s[-] at %s",
		state, g.Mode, g.LastSource, g.ChangedAt.Local().Format("15:04:05"))
}

func renderEngine(st audio.RuntimeStatus) string {
	var sb strings.Builder
	switch st.EngineState {
	case audio.EngineRunning:
		sb.WriteString("[lightgreen::b]RUNNING[-:-:-]\n\n")
	case audio.EngineError:
		sb.WriteString("[red::b]ERROR[-:-:-]\n\n")
	default:
		sb.WriteString("[darkcyan]Idle[-]\n\n")
	}
	fmt.Fprintf(&sb, "Buffer: [lightblue]%d ms[-]\n", st.BufferLevelMs)
	fmt.Fprintf(&sb, "Xruns:  [yellow]%d[-]\n", st.Xruns)
	if st.LastError != nil {
		fmt.Fprintf(&sb, "\n[red]%s[-]", tview.Escape(*st.LastError))
	}
	return sb.String()
}

func (t *TUI) renderRoute() string {
	cfg := t.state.Config()
	var sb strings.Builder

	sb.WriteString("[white::b]Input:[-:-:-]\n")
	fmt.Fprintf(&sb, "%s\n\n", deviceLabel(cfg.Route.InputDeviceID))
	sb.WriteString("[white::b]Output:[-:-:-]\n")
	fmt.Fprintf(&sb, "%s\n\n", deviceLabel(cfg.Route.OutputDeviceID))

	sb.WriteString("[white::b]Hotkey:[-:-:-]\n")
	if cur := t.state.CurrentHotkey(); cur != "" {
		fmt.Fprintf(&sb, "[yellow]%s[-] (%s)\n", tview.Escape(cur), cfg.Hotkey.Mode)
	} else {
		fmt.Fprintf(&sb, "[gray]%s (not registered)[-]\n", tview.Escape(cfg.Hotkey.Accelerator))
	}
	return sb.String()
}

func deviceLabel(id string) string {
	if id == "" {
		return "[gray](not set)[-]"
	}
	_, name, err := audio.ParseDeviceID(id)
	if err != nil {
		return "[red]" + tview.Escape(id) + "[-]"
	}
	return "[lightcyan]" + tview.Escape(name) + "[-]"
}

// runCommand executes one slash command against state and returns the
// lines to print and whether the UI should exit.
func runCommand(state *AppState, input string) ([]string, bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "/") {
		return []string{"[red]Commands start with /. Type /help[-]"}, false
	}

	switch strings.ToLower(parts[0]) {
	case "/open":
		state.SetGate(true, "tui")
		return nil, false
	case "/close":
		state.SetGate(false, "tui")
		return nil, false
	case "/toggle":
		state.ToggleGate("tui")
		return nil, false
	case "/start":
		if err := state.StartEngine(); err != nil {
			return []string{"[red]" + tview.Escape(err.Error()) + "[-]"}, false
		}
		return nil, false
	case "/stop":
		state.StopEngine()
		return nil, false
	case "/hotkey":
		return hotkeyCommand(state, parts[1:]), false
	case "/devices":
		return devicesCommand(state), false
	case "/route":
		if len(parts) != 3 {
			return []string{"[red]Usage: /route <input-id> <output-id>[-]"}, false
		}
		if err := state.SaveRoute(audio.Route{InputDeviceID: parts[1], OutputDeviceID: parts[2]}); err != nil {
			return []string{"[red]" + tview.Escape(err.Error()) + "[-]"}, false
		}
		return []string{"[lightgreen]Route saved[-]"}, false
	case "/startup", "/tray":
		return settingCommand(state, strings.ToLower(parts[0]), parts[1:]), false
	case "/quit", "/exit":
		return nil, true
	case "/help":
		return helpLines(state), false
	default:
		return []string{
			fmt.Sprintf("[red]Unknown command: %s[-]", tview.Escape(parts[0])),
			"[darkcyan]Type /help for available commands[-]",
		}, false
	}
}

func hotkeyCommand(state *AppState, args []string) []string {
	if len(args) == 0 {
		return []string{"[red]Usage: /hotkey <accelerator> [ptt|toggle|hybrid][-]"}
	}
	mode := state.Config().Hotkey.Mode
	if len(args) > 1 {
		m, err := gate.ParseMode(args[1])
		if err != nil {
			return []string{"[red]" + tview.Escape(err.Error()) + "[-]"}
		}
		mode = m
	}
	if err := state.RegisterHotkey(args[0], mode); err != nil {
		return []string{"[red]" + tview.Escape(err.Error()) + "[-]"}
	}
	return nil
}

func settingCommand(state *AppState, name string, args []string) []string {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return []string{fmt.Sprintf("[red]Usage: %s on|off[-]", name)}
	}
	enabled := args[0] == "on"
	set, label := state.SetLaunchOnStartup, "Launch on startup"
	if name == "/tray" {
		set, label = state.SetMinimizeToTray, "Minimize to tray"
	}
	if err := set(enabled); err != nil {
		return []string{"[red]" + tview.Escape(err.Error()) + "[-]"}
	}
	return []string{fmt.Sprintf("[lightgreen]%s %s[-]", label, args[0])}
}

func devicesCommand(state *AppState) []string {
	list, err := state.ListDevices()
	if err != nil {
		return []string{"[red]" + tview.Escape(err.Error()) + "[-]"}
	}
	lines := []string{"[white::b]Inputs:[-:-:-]"}
	for _, d := range list.Inputs {
		lines = append(lines, "  "+deviceLine(d))
	}
	lines = append(lines, "[white::b]Outputs:[-:-:-]")
	for _, d := range list.Outputs {
		lines = append(lines, "  "+deviceLine(d))
	}
	vm := state.VirtualMicStatus()
	lines = append(lines, fmt.Sprintf("Virtual mic: ready=%t (%s)", vm.Ready, tview.Escape(vm.Detail)))
	return lines
}

func deviceLine(d audio.DeviceInfo) string {
	var tags []string
	if d.IsDefault {
		tags = append(tags, "default")
	}
	if d.IsVirtualCandidate {
		tags = append(tags, "virtual")
	}
	line := tview.Escape(d.ID)
	if len(tags) > 0 {
		line += " [yellow](" + strings.Join(tags, ", ") + ")[-]"
	}
	return line
}

func helpLines(state *AppState) []string {
	return []string{
		"[white::b]Available Commands:[-:-:-]",
		"[lightblue]/open[-], [lightblue]/close[-], [lightblue]/toggle[-] - Drive the microphone gate",
		"[lightblue]/start[-], [lightblue]/stop[-] - Start or stop the audio engine",
		"[lightblue]/hotkey <accelerator> [mode][-] - Bind a new hotkey",
		"[lightblue]/devices[-] - List audio devices",
		"[lightblue]/route <input-id> <output-id>[-] - Save the device route",
		"[lightblue]/startup on|off[-], [lightblue]/tray on|off[-] - Launch at logon, minimize to tray",
		"[lightblue]/quit[-] - Exit the application",
		fmt.Sprintf("[darkcyan]Current hotkey: %s (%s)[-]", tview.Escape(state.Config().Hotkey.Accelerator), state.Config().Hotkey.Mode),
	}
}
