// Package terminal is the interactive REPL front-end for the agent.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mkale/sleuth/agent"
	"github.com/mkale/sleuth/chat"
)

// Terminal drives one conversation over a line-oriented prompt. It tracks
// how many messages it has already rendered, so each turn prints only what
// the loop appended since.
type Terminal struct {
	agent    *agent.Agent
	conv     *chat.Conversation
	in       io.Reader
	out      io.Writer
	rendered int
}

func New(a *agent.Agent, conv *chat.Conversation, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{agent: a, conv: conv, in: in, out: out}
}

// Run reads user turns until EOF or a quit command.
func (t *Terminal) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	for {
		fmt.Fprint(t.out, "You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" || input == "quit" || input == "exit" {
			break
		}

		t.conv.AddUserMessage(input)
		t.conv.SetProcessing(true)
		t.agent.ProcessMessage(ctx, t.conv)
		t.conv.SetProcessing(false)

		t.render()
	}
	return scanner.Err()
}

// render prints everything appended since the last render.
func (t *Terminal) render() {
	msgs := t.conv.MessagesSince(t.rendered)
	t.rendered += len(msgs)

	for _, msg := range msgs {
		switch msg.Role {
		case chat.RoleAssistant:
			fmt.Fprintf(t.out, "\nAssistant: %s\n", msg.Content)
		case chat.RoleToolActivity:
			fmt.Fprintf(t.out, "  -> %s (%dms)\n", msg.ToolName, msg.ToolDurationMS)
		case chat.RoleFile:
			fmt.Fprintf(t.out, "  [file] %s (%d bytes)\n", msg.Filename, msg.FileSize)
		case chat.RoleSystem:
			fmt.Fprintf(t.out, "  [!] %s\n", msg.Content)
		}
	}
	fmt.Fprintln(t.out)
}
