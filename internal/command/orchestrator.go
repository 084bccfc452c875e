package command

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signaldesk/sigdesk-go/internal/model"
)

// maxContextSignals caps how much prior history is sent to the AI service.
const maxContextSignals = 20

// maxReferenceItems caps the reference quotes included in a reply.
const maxReferenceItems = 3

// ContextFetcher retrieves prior classified signals for a channel.
type ContextFetcher interface {
	Contexts(ctx context.Context, channelID, category string, limit int) ([]model.ContextSignal, error)
}

// Asker calls the AI-ask collaborator.
type Asker interface {
	Ask(ctx context.Context, req model.AIAskRequest) (*model.AIAskResponse, error)
}

// Emitter delivers results back into the channel and drives the AI-busy
// indicator.
type Emitter interface {
	SendSystemMessage(channelID, content string) error
	SetAIBusy(channelID string, busy bool)
}

// Orchestrator runs the per-invocation slash-command state machine:
// fetch context, query the AI, compose a reply. Every failure path degrades
// to a canned fallback so the user always gets some response.
type Orchestrator struct {
	contexts ContextFetcher
	ai       Asker
	emit     Emitter
	rng      *rand.Rand
	verbose  bool
}

// Config holds orchestrator collaborators.
type Config struct {
	Contexts ContextFetcher
	AI       Asker
	Emitter  Emitter
	Rand     *rand.Rand // fallback selection; nil means time-seeded
	Verbose  bool
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Orchestrator{
		contexts: cfg.Contexts,
		ai:       cfg.AI,
		emit:     cfg.Emitter,
		rng:      rng,
		verbose:  cfg.Verbose,
	}
}

// Execute runs one slash-command invocation. AI and fetch failures never
// escape: they degrade to a canned reply. The returned error only reports
// a failure to deliver the reply itself. The AI-busy flag is cleared on
// every terminal transition.
func (o *Orchestrator) Execute(ctx context.Context, channelID, category, query string) error {
	invocation := uuid.New().String()[:8]
	if o.verbose {
		fmt.Printf("[command] %s: /%s query=%q channel=%s\n", invocation, category, query, channelID)
	}

	o.emit.SetAIBusy(channelID, true)
	defer o.emit.SetAIBusy(channelID, false)

	signals, err := o.contexts.Contexts(ctx, channelID, strings.ToUpper(category), maxContextSignals)
	if err != nil {
		if o.verbose {
			fmt.Printf("[command] %s: context fetch failed: %v\n", invocation, err)
		}
		return o.emit.SendSystemMessage(channelID, o.fallbackReply(category, query))
	}

	if len(signals) == 0 {
		content := fmt.Sprintf(
			"I couldn't find any prior %ss in this channel to analyze. Try chatting more!",
			strings.ToLower(category))
		return o.emit.SendSystemMessage(channelID, content)
	}

	history := make([]model.HistoryEntry, 0, len(signals))
	for _, s := range signals {
		history = append(history, model.HistoryEntry{
			User:      s.AuthorName,
			Message:   s.Content,
			Timestamp: s.ClassifiedAt,
		})
	}

	resp, err := o.ai.Ask(ctx, model.AIAskRequest{
		Category: strings.ToUpper(category),
		History:  history,
		Query:    query,
	})
	if err != nil {
		if o.verbose {
			fmt.Printf("[command] %s: AI ask failed: %v\n", invocation, err)
		}
		return o.emit.SendSystemMessage(channelID, o.fallbackReply(category, query))
	}

	return o.emit.SendSystemMessage(channelID, composeReply(category, query, resp, len(history)))
}

// composeReply formats a successful AI response: insight paragraph,
// up to three reference quotes with attribution, and a provenance footer.
func composeReply(category, query string, resp *model.AIAskResponse, historyCount int) string {
	var b strings.Builder
	b.WriteString("### 🤖 signalDesk Analysis\n")
	if query != "" {
		fmt.Fprintf(&b, "**Query:** *%q*\n", query)
	}
	b.WriteString("\n---\n\n")

	if resp.Insight != "" {
		fmt.Fprintf(&b, "#### 💡 Strategic Insight\n%s\n\n", resp.Insight)
	}

	if len(resp.Items) > 0 {
		fmt.Fprintf(&b, "---\n\n#### 🔍 Reference %ss\n", capitalize(category))
		for i, item := range resp.Items {
			if i >= maxReferenceItems {
				break
			}
			fmt.Fprintf(&b, "* **%q** — *%s*\n", item.Text, item.User)
		}
	}

	sample := historyCount
	if sample < 12 {
		sample = 12
	}
	fmt.Fprintf(&b, "\n\n> *Analysis based on latest %d signals*", sample)
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
