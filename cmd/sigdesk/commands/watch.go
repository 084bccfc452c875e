package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/signaldesk/sigdesk-go/internal/auth"
	"github.com/signaldesk/sigdesk-go/internal/client"
	"github.com/signaldesk/sigdesk-go/internal/config"
	"github.com/signaldesk/sigdesk-go/internal/model"
	"github.com/signaldesk/sigdesk-go/internal/store"
)

var (
	purple = lipgloss.Color("#A855F7")
	green  = lipgloss.Color("#22C55E")
	red    = lipgloss.Color("#EF4444")
	gray   = lipgloss.Color("#6B7280")

	brandStyle  = lipgloss.NewStyle().Bold(true).Foreground(purple)
	authorStyle = lipgloss.NewStyle().Bold(true).Foreground(green)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(red)
	mutedStyle  = lipgloss.NewStyle().Foreground(gray)
)

var watchCmd = &cobra.Command{
	Use:   "watch <channel>...",
	Short: "Connect and tail channel activity",
	Long: `Connect to the real-time server, join the given channels and print
their activity. Typed lines are sent to the active channel; lines starting
with a slash command (/decision, /action, /question, ...) run the AI flow.

Examples:
  sigdesk watch general
  sigdesk watch general design-reviews`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Verbose = true
	}

	tokens := auth.NewFileStore(config.TokenPath())
	c := client.FromConfig(cfg, tokens)

	if err := c.Connect(); err != nil {
		if errors.Is(err, client.ErrNotAuthenticated) {
			fmt.Println(errorStyle.Render("Not logged in. Run 'sigdesk login' first."))
			return nil
		}
		return err
	}
	defer c.Disconnect()

	events := c.Subscribe()
	ctx := context.Background()

	fmt.Println(brandStyle.Render("signalDesk") + mutedStyle.Render(" — watching "+strings.Join(args, ", ")))

	for _, ch := range args {
		if err := c.OpenChannel(ctx, ch); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("history fetch failed for %s: %v", ch, err)))
		}
	}

	go printLoop(c, events)

	// Ctrl+C tears the session down cleanly.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		c.Disconnect()
		os.Exit(0)
	}()

	current := args[0]
	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "/exit" || line == "/quit":
			return nil

		case strings.HasPrefix(line, "/switch "):
			current = strings.TrimSpace(strings.TrimPrefix(line, "/switch "))
			fmt.Println(mutedStyle.Render("→ " + current))

		default:
			if err := c.Send(ctx, current, line); err != nil {
				fmt.Println(errorStyle.Render(fmt.Sprintf("send failed: %v", err)))
			}
		}
	}
}

// printLoop renders store changes as they land. Message counts per channel
// track what has already been printed so only new tail entries show.
func printLoop(c *client.Client, events <-chan store.Event) {
	printed := make(map[string]int)

	for ev := range events {
		switch ev.Type {
		case store.EventMessages:
			snap := c.Snapshot(ev.ChannelID)
			from := printed[ev.ChannelID]
			if from > len(snap.Messages) {
				from = 0
			}
			for _, m := range snap.Messages[from:] {
				printMessage(ev.ChannelID, m)
			}
			printed[ev.ChannelID] = len(snap.Messages)

		case store.EventTyping:
			snap := c.Snapshot(ev.ChannelID)
			if len(snap.TypingUserIDs) > 0 {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("  %s typing in %s…",
					strings.Join(snap.TypingUserIDs, ", "), ev.ChannelID)))
			}

		case store.EventAIBusy:
			if c.Snapshot(ev.ChannelID).AIBusy {
				fmt.Println(mutedStyle.Render("  signalDesk is thinking…"))
			}

		case store.EventSynced:
			fmt.Println(mutedStyle.Render(fmt.Sprintf("  intelligence synced for %s (%d pending)",
				ev.ChannelID, c.PendingAICount(ev.ChannelID))))

		case store.EventCleared:
			fmt.Println(mutedStyle.Render("  session cleared"))
			printed = make(map[string]int)
		}
	}
}

func printMessage(channelID string, m model.Message) {
	author := m.AuthorName
	if author == "" {
		author = m.AuthorID
	}
	style := authorStyle
	if m.AuthorID == model.AISystemID || m.Kind == model.KindSystem {
		style = brandStyle
	}
	ts := m.CreatedAt.Local().Format("15:04")
	fmt.Printf("%s %s %s %s\n",
		mutedStyle.Render(ts),
		mutedStyle.Render("["+channelID+"]"),
		style.Render(author+":"),
		m.Content)
}
