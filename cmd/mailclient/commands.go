package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/nhle/mailclient/internal/inbox"
	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/internal/store"
	"github.com/nhle/mailclient/internal/theme"
)

var (
	errNotLoggedIn    = errors.New("not logged in: run `mailclient login` first")
	errSessionExpired = errors.New("session expired: run `mailclient login` again")
	errNoRegisterKey  = errors.New(
		"registration key not configured: set server.register_key or MAILCLIENT_SERVER_REGISTER_KEY")
)

const usage = `Usage: mailclient [--config path] <command> [flags]

Commands:
  register   create an account (needs server.register_key)
  login      log in and store the access token
  logout     log out and forget the access token
  status     show whether the stored token is still valid
  profile    show the account profile
  emails     list the inbox (--cached shows the last fetched list)
  download   download an attachment: download <email-id> <filename> [--out dir]
  watch      refresh the inbox periodically (r refreshes, q quits)

Environment:
  MAILCLIENT_SERVER_REGISTER_KEY  pre-shared key sent with register
`

// command is a subcommand entry point.
type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register": cmdRegister,
	"login":    cmdLogin,
	"logout":   cmdLogout,
	"status":   cmdStatus,
	"profile":  cmdProfile,
	"emails":   cmdEmails,
	"download": cmdDownload,
	"watch":    cmdWatch,
}

// run parses global flags, loads config, wires the app and dispatches
// to the requested command.
func run(args []string, out, errOut io.Writer) error {
	fs := pflag.NewFlagSet("mailclient", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(errOut)
	fs.Usage = func() { fmt.Fprint(errOut, usage) }

	configPath := fs.String("config", model.DefaultConfigPath(), "path to config.yaml")
	verbose := fs.BoolP("verbose", "v", false, "log requests at debug level")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	a, err := newApp(cfg, out, errOut)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd(ctx, a, fs.Args()[1:])
}

// credentialFlags parses --email and --password, prompting for any that
// are missing.
func credentialFlags(name string, args []string) (string, string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	email := fs.StringP("email", "e", "", "account email")
	password := fs.StringP("password", "p", "", "account password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if err := promptCredentials(email, password); err != nil {
		return "", "", err
	}
	return *email, *password, nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	if a.cfg.Server.RegisterKey == "" {
		return errNoRegisterKey
	}

	email, password, err := credentialFlags("register", args)
	if err != nil {
		return err
	}

	msg, err := a.session.Register(ctx, email, password)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Registration successful"
	}
	fmt.Fprintln(a.out, theme.SuccessStyle.Render(msg))
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	email, password, err := credentialFlags("login", args)
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, email, password); err != nil {
		return err
	}

	st := a.session.State()
	fmt.Fprintln(a.out, theme.SuccessStyle.Render("Logged in as "+st.User.Email))
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	msg, err := a.session.Logout(ctx)
	if err != nil {
		fmt.Fprintln(a.out, theme.MutedStyle.Render("Local credential removed"))
		return err
	}
	if msg == "" {
		msg = "Logged out"
	}
	fmt.Fprintln(a.out, theme.SuccessStyle.Render(msg))
	return nil
}

func cmdStatus(ctx context.Context, a *app, _ []string) error {
	st := a.session.Start(ctx)
	line := theme.StatusStyle(st.Status.String()).Render(st.Status.String())
	if st.User != nil {
		line += " as " + st.User.Email
	}
	fmt.Fprintln(a.out, line)
	return nil
}

func cmdProfile(ctx context.Context, a *app, _ []string) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	profile, err := a.client.GetProfile(ctx)
	if err != nil {
		return err
	}
	renderProfile(a.out, profile)
	return nil
}

func cmdEmails(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("emails", pflag.ContinueOnError)
	cached := fs.Bool("cached", false, "show the last fetched inbox without contacting the service")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cached {
		snap, err := a.inbox.Cached(ctx)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintln(a.out, theme.MutedStyle.Render("No cached inbox"))
			return nil
		}
		if err != nil {
			return err
		}
		renderInbox(a.out, snap.Emails, snap.FetchedAt)
		return nil
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	if _, err := a.inbox.Refresh(ctx); err != nil {
		return err
	}
	renderInbox(a.out, a.inbox.Emails(), a.inbox.FetchedAt())
	return nil
}

func cmdDownload(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("download", pflag.ContinueOnError)
	outDir := fs.StringP("out", "o", ".", "directory to write the attachment to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: mailclient download <email-id> <filename> [--out dir]")
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	emailID, filename := fs.Arg(0), fs.Arg(1)
	if meta, ok := cachedAttachment(ctx, a, emailID, filename); ok {
		fmt.Fprintln(a.out, theme.MutedStyle.Render(fmt.Sprintf(
			"Downloading %s (%s, %s)",
			meta.Filename, meta.ContentType, humanize.Bytes(uint64(max(meta.SizeBytes, 0))),
		)))
	}

	att, err := a.client.DownloadAttachment(ctx, emailID, filename)
	if err != nil {
		return err
	}

	path := filepath.Join(*outDir, safeFilename(att.Filename))
	if err := os.WriteFile(path, att.Data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(a.out, "%s %s\n",
		theme.SuccessStyle.Render("Saved "+path),
		theme.MutedStyle.Render("("+humanize.Bytes(uint64(len(att.Data)))+")"),
	)
	return nil
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	interval := fs.Int("interval", a.cfg.Inbox.WatchIntervalSec, "seconds between refreshes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w := inbox.NewWatcher(a.inbox, time.Duration(*interval)*time.Second)
	defer w.Stop()

	p := tea.NewProgram(newWatchModel(ctx, a, w),
		tea.WithContext(ctx),
		tea.WithOutput(a.out),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running watch: %w", err)
	}
	return final.(watchModel).err
}

// cachedAttachment looks filename up in the last fetched inbox.
func cachedAttachment(ctx context.Context, a *app, emailID, filename string) (model.AttachmentMeta, bool) {
	snap, err := a.inbox.Cached(ctx)
	if err != nil {
		return model.AttachmentMeta{}, false
	}
	email, ok := snap.Find(emailID)
	if !ok {
		return model.AttachmentMeta{}, false
	}
	return email.Attachment(filename)
}

// safeFilename strips directories from a server-provided name so the
// download cannot escape the output directory.
func safeFilename(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." {
		return "attachment"
	}
	return base
}
