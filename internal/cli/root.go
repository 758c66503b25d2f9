package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/daybook-app/daybook/internal/models"
)

// stdout is a test seam; tests point it at a buffer.
var stdout io.Writer = os.Stdout

func (a *App) getStatus(ctx context.Context) string {
	email := a.currentEmail(ctx)
	if email == "" {
		return ""
	}
	if a.offline.Load() {
		return fmt.Sprintf("(%s offline)", email)
	}
	return fmt.Sprintf("(%s)", email)
}

func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(stdout, "Welcome to daybook (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprintf(stdout, "daybook %s> ", a.getStatus(ctx))
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		if !a.isLoggedIn(ctx) {
			switch cmd {
			case "help":
				fmt.Fprintln(stdout, "Available commands: login, exit")
			case "login":
				a.Login(ctx)
			case "exit", "quit":
				fmt.Fprintln(stdout, "Bye!")
				return
			default:
				fmt.Fprintln(stdout, "Sign in first (login)")
			}
			continue
		}

		switch cmd {
		case "help":
			fmt.Fprintln(stdout, "Notes:    notes, addnote, attach")
			fmt.Fprintln(stdout, "Planner:  tasks, addtask, events, addevent")
			fmt.Fprintln(stdout, "Sharing:  share, shares, invites, accept, decline, revoke")
			fmt.Fprintln(stdout, "Session:  refresh, logout, exit")
		case "notes":
			a.ListNotes(ctx)
		case "addnote":
			a.AddNote(ctx)
		case "attach":
			a.AttachFile(ctx)
		case "tasks":
			a.ListTasks(ctx)
		case "addtask":
			a.AddTask(ctx)
		case "events":
			a.ListEvents(ctx)
		case "addevent":
			a.AddEvent(ctx)
		case "share":
			a.Share(ctx, args)
		case "shares":
			a.Shares(ctx, args)
		case "invites":
			a.Invites(ctx)
		case "accept":
			a.Respond(ctx, args, models.StatusAccepted)
		case "decline":
			a.Respond(ctx, args, models.StatusDeclined)
		case "revoke":
			a.RevokeShare(ctx, args)
		case "refresh":
			a.Refresh(ctx)
		case "login":
			a.Login(ctx)
		case "logout":
			a.Logout(ctx)
		case "exit", "quit":
			fmt.Fprintln(stdout, "Bye!")
			return
		default:
			fmt.Fprintln(stdout, "Unknown command:", cmd)
		}
	}
}
