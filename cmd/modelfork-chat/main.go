// modelfork-chat is a terminal client for the modelfork API. It streams a
// single prompt, optionally against two models side by side.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/modelfork/modelfork/pkg/client"
	"github.com/modelfork/modelfork/pkg/completion"
	"github.com/modelfork/modelfork/pkg/provider"
)

func main() {
	var (
		baseURL   = flag.String("server", "http://localhost:8080", "modelfork server URL")
		sessionID = flag.String("session", "", "session id (default: random)")
		model     = flag.String("model", "gpt-5-mini", "model label")
		model2    = flag.String("compare", "", "second model label; enables compare mode")
		chatID    = flag.String("chat", "", "existing chat id to continue")
		system    = flag.String("system", "", "system prompt")
		maxTokens = flag.Int("max-tokens", 0, "token limit (0 = server default)")
		listOnly  = flag.Bool("models", false, "list available models and exit")
		noChat    = flag.Bool("stateless", false, "do not persist the exchange")
	)
	flag.Parse()

	if *sessionID == "" {
		*sessionID = uuid.New().String()
	}
	c := client.New(*baseURL, *sessionID)
	ctx := context.Background()

	if *listOnly {
		if err := listModels(ctx, c); err != nil {
			fail(err)
		}
		return
	}

	message := strings.Join(flag.Args(), " ")
	if message == "" {
		message = readPrompt()
	}
	if message == "" {
		fail(fmt.Errorf("no prompt given: pass it as arguments or on stdin"))
	}

	if !*noChat && *chatID == "" {
		chat, err := c.CreateChat(ctx, "")
		if err != nil {
			fail(err)
		}
		*chatID = chat.ID
	}

	opts := provider.Options{MaxTokens: *maxTokens}

	var err error
	if *model2 != "" {
		err = runCompare(ctx, c, completion.CompareRequest{
			ChatID: *chatID, Model1: *model, Model2: *model2,
			Content: message, System: *system, Options: opts,
		})
	} else {
		err = runSingle(ctx, c, completion.Request{
			ChatID: *chatID, Model: *model,
			Content: message, System: *system, Options: opts,
		})
	}
	if err != nil {
		fail(err)
	}
}

func runSingle(ctx context.Context, c *client.Client, req completion.Request) error {
	session := client.NewStreamSession()
	if req.ChatID != "" {
		session.OnFinish = func() {
			// The first exchange may have titled the chat; pick up the
			// server's copy so the summary line shows what is stored.
			if chat, _, err := c.GetChat(ctx, req.ChatID); err == nil {
				fmt.Fprintf(os.Stderr, "[chat: %s]\n", chat.Title)
			}
		}
	}

	err := c.CompleteStream(ctx, req, session, func(e client.StreamEvent) {
		if e.Delta != "" {
			fmt.Print(e.Delta)
		}
	})
	if err != nil {
		return err
	}
	fmt.Println()

	if msg := session.Slot("").Err(); msg != "" {
		return fmt.Errorf("stream failed: %s", msg)
	}
	return nil
}

func runCompare(ctx context.Context, c *client.Client, req completion.CompareRequest) error {
	// Deltas from the two slots interleave; print them prefixed so the
	// terminal output stays readable.
	session := client.NewStreamSession()
	err := c.CompareStream(ctx, req, session, func(e client.StreamEvent) {
		if e.Delta != "" {
			fmt.Printf("[%s] %s\n", e.Model, e.Delta)
		}
	})
	if err != nil {
		return err
	}

	fmt.Println()
	for slot, label := range map[string]string{"model1": req.Model1, "model2": req.Model2} {
		state := session.Slot(slot)
		fmt.Printf("=== %s (%s) ===\n", slot, label)
		if msg := state.Err(); msg != "" {
			fmt.Printf("error: %s\n\n", msg)
			continue
		}
		fmt.Printf("%s\n\n", state.Content())
	}
	return nil
}

func listModels(ctx context.Context, c *client.Client) error {
	descriptors, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, d := range descriptors {
		fmt.Printf("%-22s %-20s %s\n", d.Label, d.DisplayName, d.Description)
	}
	return nil
}

func readPrompt() string {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	var sb strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
