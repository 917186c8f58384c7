package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gratefultolord/loan_intake_bot/internal/events"
	"github.com/gratefultolord/loan_intake_bot/internal/onboarding"
	"github.com/gratefultolord/loan_intake_bot/internal/session"
)

func newChatCmd() *cobra.Command {
	var (
		customerID string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Starts an interactive conversation on stdin.

Commands:
  /attach <path>  upload a document
  /proceed        send the keyword the current stage expects
  /activity       print the application progress log
  /events         pull the backend event feed
  /quit           leave`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess, err := a.NewSessionFor(ctx, customerID)
			if err != nil {
				return err
			}

			return runChat(ctx, sess, cmd.InOrStdin(), cmd.OutOrStdout(), outDir)
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "skip onboarding and chat as this customer id")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory sanction letters are saved to")

	return cmd
}

func runChat(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer, outDir string) error {
	printMessages(out, sess.Messages(), outDir)
	printOptions(out, sess.Stage())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())

		var (
			msgs []session.Message
			err  error
		)

		switch {
		case line == "/quit":
			return nil
		case line == "/activity":
			printActivity(out, sess.Activity())
			continue
		case line == "/events":
			var added []events.ProcessEvent
			added, err = sess.RefreshEvents(ctx)
			if err == nil {
				printActivity(out, added)
				continue
			}
		case line == "/proceed":
			if sess.Stage() != onboarding.StageDone {
				fmt.Fprintln(out, "Finish the introduction first.")
				continue
			}
			msgs, err = sess.Proceed(ctx)
		case strings.HasPrefix(line, "/attach"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/attach"))
			if path == "" {
				fmt.Fprintln(out, "usage: /attach <path>")
				continue
			}

			doc, readErr := readDocument(path)
			if readErr != nil {
				fmt.Fprintln(out, "Error:", readErr)
				continue
			}
			msgs, err = sess.Attach(ctx, doc)
		default:
			msgs, err = sess.Handle(ctx, line)
		}

		if errors.Is(err, session.ErrBusy) {
			fmt.Fprintln(out, "Still working on your previous message.")
			continue
		}
		if err != nil {
			return err
		}

		printMessages(out, msgs, outDir)
		printOptions(out, sess.Stage())
	}
}

func readDocument(path string) (session.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Document{}, err
	}

	kind := http.DetectContentType(data)
	if i := strings.Index(kind, ";"); i >= 0 {
		kind = kind[:i]
	}

	return session.Document{
		Name:      filepath.Base(path),
		MediaKind: kind,
		Data:      data,
	}, nil
}

func printMessages(out io.Writer, msgs []session.Message, outDir string) {
	for _, m := range msgs {
		if m.Sender != session.SenderAssistant {
			continue
		}

		fmt.Fprintln(out, m.Text)

		if !m.HasDocument() {
			continue
		}

		path := filepath.Join(outDir, m.DocumentName)
		if err := os.WriteFile(path, m.DocumentPayload, 0o644); err != nil {
			fmt.Fprintln(out, "Error saving document:", err)
			continue
		}
		fmt.Fprintf(out, "[saved %s]\n", path)
	}
}

func printOptions(out io.Writer, stage onboarding.Stage) {
	if opts := onboarding.Options(stage); len(opts) > 0 {
		fmt.Fprintf(out, "[%s]\n", strings.Join(opts, " / "))
	}
}

func printActivity(out io.Writer, entries []events.ProcessEvent) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No activity yet.")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-10s  %s (%s)\n", e.Timestamp.Format("15:04:05"), e.Status, e.Message, e.Category)
	}
}
