package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/kingrea/boostify/internal/account"
	"github.com/kingrea/boostify/internal/api"
	"github.com/kingrea/boostify/internal/attendance"
	"github.com/kingrea/boostify/internal/config"
	"github.com/kingrea/boostify/internal/devserver"
	"github.com/kingrea/boostify/internal/listview"
	"github.com/kingrea/boostify/internal/logbook"
	"github.com/kingrea/boostify/internal/session"
	"github.com/kingrea/boostify/internal/theme"
	"github.com/kingrea/boostify/internal/tui"
)

var (
	errNotSignedIn    = errors.New("not signed in, run: boostify login --code <CODE>")
	errSessionExpired = errors.New("Session expired. Please sign in again.")
)

// cliEnv is what every subcommand needs from ~/.boostify.
type cliEnv struct {
	cfg      *config.Config
	client   *api.Client
	sessions *session.Store
	logbook  *logbook.Logbook
}

func openEnv() (*cliEnv, error) {
	home, err := config.ResolveHome()
	if err != nil {
		return nil, err
	}
	if err := config.InitDir(home); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", home, err)
	}
	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}
	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		return nil, err
	}
	return &cliEnv{
		cfg:      cfg,
		client:   api.New(cfg.BaseURL(), cfg.Timeout()),
		sessions: session.NewStore(cfg.SessionPath()),
		logbook:  lb,
	}, nil
}

func (e *cliEnv) formatter() attendance.Formatter {
	return attendance.NewFormatter(e.cfg.Location(), e.cfg.Locale(), time.Now)
}

// checkAuth clears the stored credential when the backend rejects it.
func (e *cliEnv) checkAuth(err error) error {
	if err == nil || !api.IsUnauthorized(err) {
		return err
	}
	if clearErr := e.sessions.Clear(); clearErr != nil {
		e.logbook.Error("Clear credential: %v", clearErr)
	}
	e.logbook.Warn("Session expired")
	return errSessionExpired
}

func loginCmd() *cobra.Command {
	var code string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential",
		Long: `Sign in with an assistant code and store the token in ~/.boostify.

Without --password-stdin you are prompted for the password; on a
terminal the input is not echoed. With --password-stdin the first line
of stdin is used, for scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)
			if err != nil {
				return err
			}
			form := account.SignInForm{AssistantCode: code, Password: password}
			if err := form.Validate(); err != nil {
				return err
			}
			result, err := env.client.SignIn(cmd.Context(), form.AssistantCode, form.Password)
			if err != nil {
				env.logbook.Warn("Sign in failed: %v", err)
				return errors.New(api.UserMessage(err))
			}
			cred := session.Credential{
				ID:            result.ID,
				Name:          result.Name,
				AssistantCode: result.AssistantCode,
				Token:         result.Token,
			}
			if err := env.sessions.Save(cred); err != nil {
				return err
			}
			env.logbook.Info("Signed in as %s", cred.AssistantCode)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", env.formatter().DisplayName(cred.Name), cred.AssistantCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "assistant code")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin without prompting")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			if err := env.sessions.Clear(); err != nil {
				return err
			}
			env.logbook.Info("Signed out")
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			token := env.sessions.Token()
			if token == "" {
				return errNotSignedIn
			}
			profile, err := env.client.WhoAmI(cmd.Context(), token)
			if err != nil {
				return env.checkAuth(err)
			}
			picture := "default avatar"
			if profile.HasImage() {
				picture = profile.ImageURL
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", env.formatter().DisplayName(profile.Name), profile.AssistantCode)
			fmt.Fprintf(out, "Picture: %s\n", picture)
			return nil
		},
	}
}

func liveCmd() *cobra.Command {
	var page int
	var date string

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Print one page of the live attendance report",
		Long: `Print one page of the live attendance report.

--date keeps only the rows of the fetched page that fall on that day
(DD/MM/YYYY or YYYY-MM-DD, in the configured display timezone).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			f := env.formatter()
			var filter listview.Predicate[attendance.Attendance]
			if strings.TrimSpace(date) != "" {
				day, ok := f.ParseDay(date)
				if !ok {
					return errors.New("--date: Use DD/MM/YYYY or YYYY-MM-DD.")
				}
				filter = tui.DateFilter(day, f.Location())
			}
			view := listview.New(tui.AttendanceSource(env.client), theme.For(env.cfg.Theme()), tui.LiveConfig(f),
				listview.WithContext[attendance.Attendance](cmd.Context()),
				listview.WithTimeout[attendance.Attendance](env.cfg.Timeout()))
			return printPage(env, cmd.OutOrStdout(), view, page, filter)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page to fetch")
	cmd.Flags().StringVar(&date, "date", "", "only show rows on this day")
	return cmd
}

func recapCmd() *cobra.Command {
	var page int
	var search string

	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Print one page of per-assistant attendance totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			view := listview.New(tui.RecapSource(env.client), theme.For(env.cfg.Theme()), tui.RecapConfig(env.formatter()),
				listview.WithContext[attendance.RecapEntry](cmd.Context()),
				listview.WithTimeout[attendance.RecapEntry](env.cfg.Timeout()))
			return printPage(env, cmd.OutOrStdout(), view, page, tui.SearchFilter(search))
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page to fetch")
	cmd.Flags().StringVar(&search, "search", "", "only show rows whose code or name contains this")
	return cmd
}

// printPage loads one page through the same view the TUI uses and prints it.
func printPage[T any](env *cliEnv, out io.Writer, view *listview.View[T], page int, filter listview.Predicate[T]) error {
	token := env.sessions.Token()
	if pending := listview.Settle(view, view.Load(page, token)); len(pending) > 0 {
		return errNotSignedIn
	}
	if err := view.Err(); err != nil {
		env.logbook.Warn("Page %d failed: %v", page, err)
		if authErr := env.checkAuth(err); errors.Is(authErr, errSessionExpired) {
			return authErr
		}
		fmt.Fprintln(out, view.View())
		return errors.New(api.UserMessage(err))
	}
	view.ApplyFilter(filter)
	fmt.Fprintln(out, view.View())
	return nil
}

func logsCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the most recent log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			tail, total := env.logbook.Tail(lines)
			out := cmd.OutOrStdout()
			if total == 0 {
				fmt.Fprintln(out, "No log entries yet.")
				return nil
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if total > len(tail) {
				fmt.Fprintf(cmd.ErrOrStderr(), "(%d of %d entries, full log at %s)\n", len(tail), total, env.logbook.Path())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "number of entries to show")
	return cmd
}

func devserverCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory fake of the attendance backend",
		Long: `Run an in-memory fake of the attendance backend.

Every seeded assistant signs in with the password "` + devserver.DevPassword + `".
Point the client at it with BOOSTIFY_API_URL, for example:
  boostify devserver --addr 127.0.0.1:8787
  BOOSTIFY_API_URL=http://127.0.0.1:8787 boostify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := devserver.DefaultSettings()
			if addr != "" {
				host, port, err := splitAddr(addr)
				if err != nil {
					return fmt.Errorf("--addr: %w", err)
				}
				settings.Host, settings.Port = host, port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errOut := cmd.ErrOrStderr()
			srv := devserver.NewServer(settings, devserver.WithLogger(printfLogger(func(format string, args ...any) {
				fmt.Fprintf(errOut, format+"\n", args...)
			})))
			if err := srv.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s (ctrl+c to stop)\n", srv.BaseURL())
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address in host:port form (default 127.0.0.1:8787)")
	return cmd
}

type printfLogger func(format string, args ...any)

func (f printfLogger) Printf(format string, args ...any) { f(format, args...) }

func splitAddr(addr string) (string, int, error) {
	host, portText, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portText)
	}
	return host, port, nil
}

// readPassword prompts on out and reads without echo when in is a terminal.
// Piped input and --password-stdin fall back to reading one line.
func readPassword(in io.Reader, out io.Writer, fromStdin bool) (string, error) {
	if !fromStdin {
		fmt.Fprint(out, "Password: ")
		if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
			secret, err := term.ReadPassword(f.Fd())
			fmt.Fprintln(out)
			if err != nil {
				return "", fmt.Errorf("read password: %w", err)
			}
			return strings.TrimRight(string(secret), "\r\n"), nil
		}
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
