package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"fingate-portal/internal/adapters/rest"
	"fingate-portal/internal/config"
	"fingate-portal/internal/core/domain"
	"fingate-portal/internal/core/services"
	"fingate-portal/internal/pkg/pagination"

	"github.com/spf13/pflag"
)

var (
	flagContext     = pflag.String("context", "", "owner context key, e.g. application:42")
	flagApplication = pflag.Uint("application", 0, "application id")
	flagDocType     = pflag.String("doc-type", "", "document type, e.g. passport_director")
	flagReason      = pflag.String("reason", "", "replace reason")
	flagRequired    = pflag.String("required", "", "comma-separated required doc types")
	flagOut         = pflag.String("out", "", "output file for downloads")
	flagArchived    = pflag.Bool("archived", false, "include archived documents")
	flagYes         = pflag.Bool("yes", false, "confirm destructive actions")
	flagPage        = pflag.Int("page", 1, "listing page")
	flagLimit       = pflag.Int("limit", pagination.DefaultLimit, "listing page size")
)

// app bundles the root-scope wiring: one session, one transport, the
// services built on top of them.
type app struct {
	cfg       *config.Config
	session   *services.Session
	documents *services.DocumentService
	messages  *services.MessageService
}

func main() {
	pflag.Parse()
	args := pflag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	session := services.NewSession(cfg.TokenFile)
	if err := session.Restore(); err != nil {
		log.Fatalf("❌ Failed to restore session: %v", err)
	}

	client := rest.NewClient(cfg.API.BaseURL, cfg.API.Timeout, session)
	a := &app{
		cfg:       cfg,
		session:   session,
		documents: services.NewDocumentService(rest.NewDocumentAPI(client), services.NewDocumentStore()),
		messages:  services.NewMessageService(rest.NewMessageAPI(client), session, services.NewMessageStore()),
	}

	if err := a.run(args[0], args[1:]); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func (a *app) run(command string, args []string) error {
	// login/logout manage the session itself and bypass the gate
	switch command {
	case "login":
		return a.login(args)
	case "logout":
		return a.logout()
	}

	// Everything else requires an authenticated user
	decision := services.Decide(a.session.CurrentUser(), false, nil)
	if decision.Action == services.ActionRedirect {
		return fmt.Errorf("%w, run 'portal login <token>' first", services.ErrNotAuthenticated)
	}

	ctx := context.Background()

	switch command {
	case "docs":
		return a.runDocs(ctx, args)
	case "chat":
		return a.runChat(ctx, args)
	case "status":
		return a.runStatus(ctx)
	case "watch":
		return a.runWatch()
	default:
		usage()
		return fmt.Errorf("unknown command '%s'", command)
	}
}

func (a *app) login(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: portal login <token>")
	}

	user, err := a.session.SetToken(args[0])
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	log.Printf("✅ Logged in as %s [%s]", user.Username, user.Role)
	return nil
}

func (a *app) logout() error {
	if err := a.session.Clear(); err != nil {
		return err
	}
	log.Println("✅ Logged out")
	return nil
}

func (a *app) runDocs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: portal docs list|upload|confirm|replace|delete|download")
	}

	owner, err := ownerFromFlags()
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		docs, err := a.documents.List(ctx, owner, *flagArchived)
		if err != nil {
			return err
		}
		printDocuments(docs)
		return nil

	case "upload":
		if len(args) != 2 {
			return errors.New("usage: portal docs upload <path> --context <key> --doc-type <type>")
		}
		file, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer file.Close()

		doc, err := a.documents.Upload(ctx, services.UploadInput{
			File:     file,
			FileName: fileBase(args[1]),
			Owner:    owner,
			DocType:  *flagDocType,
		})
		if err != nil {
			return err
		}
		log.Printf("⬆️ Uploaded document %d (temporary, confirm before it expires)", doc.ID)

		if err := a.documents.Confirm(ctx, doc.ID, owner); err != nil {
			return err
		}
		log.Printf("✅ Document %d confirmed", doc.ID)
		return nil

	case "confirm":
		id, err := parseID(args, "docs confirm <id>")
		if err != nil {
			return err
		}
		if err := a.documents.Confirm(ctx, id, owner); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w (the upload likely expired, upload it again)", err)
			}
			return err
		}
		log.Printf("✅ Document %d confirmed", id)
		return nil

	case "replace":
		if len(args) != 3 {
			return errors.New("usage: portal docs replace <id> <path> --context <key>")
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid document id '%s'", args[1])
		}
		file, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer file.Close()

		doc, err := a.documents.Replace(ctx, services.ReplaceInput{
			DocumentID: uint(id),
			Owner:      owner,
			File:       file,
			FileName:   fileBase(args[2]),
			Reason:     *flagReason,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("%w (refresh the list and retry)", err)
			}
			return err
		}
		log.Printf("✅ Document replaced, new confirmed document %d", doc.ID)
		return nil

	case "delete":
		id, err := parseID(args, "docs delete <id> --yes")
		if err != nil {
			return err
		}
		if !*flagYes {
			return errors.New("deleting a document is destructive, re-run with --yes")
		}
		if err := a.documents.Remove(ctx, id, owner); err != nil {
			return err
		}
		log.Printf("🗑️ Document %d deleted", id)
		return nil

	case "download":
		id, err := parseID(args, "docs download <id>")
		if err != nil {
			return err
		}
		body, name, err := a.documents.Download(ctx, id, owner)
		if err != nil {
			return err
		}
		defer body.Close()

		target := *flagOut
		if target == "" {
			target = name
		}
		if target == "" {
			target = fmt.Sprintf("document-%d", id)
		}

		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()

		written, err := io.Copy(out, body)
		if err != nil {
			return err
		}
		log.Printf("⬇️ Saved %s (%d bytes)", target, written)
		return nil

	default:
		return fmt.Errorf("unknown docs subcommand '%s'", args[0])
	}
}

func (a *app) runChat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: portal chat list|send|edit|delete|moderate")
	}
	if *flagApplication == 0 {
		return errors.New("--application is required for chat commands")
	}
	appID := *flagApplication

	switch args[0] {
	case "list":
		messages, err := a.messages.List(ctx, appID)
		if err != nil {
			return err
		}
		printMessages(messages)
		return nil

	case "send":
		if len(args) < 2 {
			return errors.New("usage: portal chat send <body> --application <id>")
		}
		message, err := a.messages.Send(ctx, appID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		log.Printf("✅ Message %d sent [%s]", message.ID, message.ModerationStatus)
		return nil

	case "edit":
		if len(args) < 3 {
			return errors.New("usage: portal chat edit <id> <body> --application <id>")
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid message id '%s'", args[1])
		}
		if _, err := a.messages.Edit(ctx, appID, uint(id), strings.Join(args[2:], " ")); err != nil {
			return err
		}
		log.Printf("✅ Message %d edited", id)
		return nil

	case "delete":
		id, err := parseID(args, "chat delete <id> --yes")
		if err != nil {
			return err
		}
		if err := a.messages.Delete(ctx, appID, id, *flagYes); err != nil {
			if errors.Is(err, services.ErrConfirmationRequired) {
				return errors.New("deleting a message is destructive, re-run with --yes")
			}
			return err
		}
		log.Printf("🗑️ Message %d deleted", id)
		return nil

	case "moderate":
		if len(args) != 3 {
			return errors.New("usage: portal chat moderate <id> approve|reject --application <id>")
		}
		if !services.Can(a.session.Role(), services.CapModerateMessages) {
			return fmt.Errorf("role '%s' cannot moderate messages", a.session.Role())
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid message id '%s'", args[1])
		}
		decision := services.ModerationDecision(args[2])
		if err := a.messages.Moderate(ctx, appID, uint(id), decision); err != nil {
			return err
		}
		log.Printf("✅ Message %d: %s", id, decision)
		return nil

	default:
		return fmt.Errorf("unknown chat subcommand '%s'", args[0])
	}
}

func (a *app) runStatus(ctx context.Context) error {
	if *flagApplication == 0 {
		return errors.New("--application is required for status")
	}
	required := splitList(*flagRequired)
	if len(required) == 0 {
		return errors.New("--required is required for status, e.g. --required passport,balance_f1")
	}

	owner := domain.OwnerContext{Kind: domain.OwnerApplication, EntityID: *flagApplication}
	docs, err := a.documents.List(ctx, owner, false)
	if err != nil {
		return err
	}

	report := services.ComputeCompletion(required, docs)
	for _, item := range report.Items {
		mark := "✗"
		if item.Satisfied {
			mark = "✓"
		}
		fmt.Printf("  [%s] %s\n", mark, item.DocType)
	}
	fmt.Printf("Completion: %d%% (%d of %d)\n", report.Percent, report.Satisfied, report.Required)
	return nil
}

func (a *app) runWatch() error {
	if *flagApplication == 0 {
		return errors.New("--application is required for watch")
	}
	appID := *flagApplication
	owner := domain.OwnerContext{Kind: domain.OwnerApplication, EntityID: appID}

	poller := services.NewPollService()
	poller.Start()
	defer poller.Stop()

	_, err := poller.Subscribe(fmt.Sprintf("messages:%d", appID), a.cfg.Poll.Messages, func(ctx context.Context) error {
		return a.messages.Refresh(ctx, appID)
	})
	if err != nil {
		return err
	}

	_, err = poller.Subscribe(fmt.Sprintf("documents:%s", owner.Key()), a.cfg.Poll.Documents, func(ctx context.Context) error {
		return a.documents.Refresh(ctx, owner)
	})
	if err != nil {
		return err
	}

	log.Printf("👀 Watching application %d (messages every %s, documents every %s), Ctrl+C to stop",
		appID, a.cfg.Poll.Messages, a.cfg.Poll.Documents)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Stopping watch...")
	return nil
}

// ownerFromFlags resolves the owner context from --context
func ownerFromFlags() (domain.OwnerContext, error) {
	if *flagContext == "" {
		return domain.OwnerContext{}, errors.New("--context is required for docs commands, e.g. --context application:42")
	}
	return domain.ParseOwnerContext(*flagContext)
}

// parseID extracts a single numeric id argument
func parseID(args []string, usageLine string) (uint, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("usage: portal %s", usageLine)
	}
	id, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id '%s'", args[1])
	}
	return uint(id), nil
}

func printDocuments(docs []*domain.Document) {
	params := pagination.NewParams(*flagPage, *flagLimit)
	start, end := pagination.Bounds(params, len(docs))
	meta := pagination.GetMeta(params, len(docs))

	fmt.Printf("%-6s %-20s %-10s %-30s %s\n", "ID", "TYPE", "STATUS", "FILE", "UPLOADED")
	for _, doc := range docs[start:end] {
		fmt.Printf("%-6d %-20s %-10s %-30s %s\n",
			doc.ID, doc.DocType, doc.Status, doc.FileName, doc.UploadedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Page %d/%d, %d total\n", meta.Page, meta.TotalPages, meta.Total)
}

func printMessages(messages []*domain.Message) {
	params := pagination.NewParams(*flagPage, *flagLimit)
	start, end := pagination.Bounds(params, len(messages))
	meta := pagination.GetMeta(params, len(messages))

	for _, message := range messages[start:end] {
		fmt.Printf("#%d [%s] %s (%s): %s\n",
			message.ID, message.ModerationStatus, message.SenderRole,
			message.CreatedAt.Format("2006-01-02 15:04"), message.Body)
	}
	fmt.Printf("Page %d/%d, %d total\n", meta.Page, meta.TotalPages, meta.Total)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fileBase(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func usage() {
	fmt.Fprintln(os.Stderr, `fingate portal client

Usage:
  portal login <token>
  portal logout
  portal docs list|upload|confirm|replace|delete|download [args] --context <key>
  portal chat list|send|edit|delete|moderate [args] --application <id>
  portal status --application <id> --required <type,type,...>
  portal watch --application <id>`)
}
