package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"election-service/internal/apiclient"
	"election-service/internal/assistant"
	"election-service/internal/models"
	"election-service/internal/review"
	"election-service/internal/session"
	"election-service/internal/voterlist"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitNotLogin = 3
)

var errUsage = errors.New("usage")

// app carries what every command needs. The session is loaded once and saved by the
// commands that change it.
type app struct {
	opts   Options
	api    *apiclient.APIClient
	store  session.Store
	sess   *session.Session
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register": cmdRegister,
	"login":    cmdLogin,
	"refresh":  cmdRefresh,
	"logout":   cmdLogout,
	"status":   cmdStatus,
	"voters":   cmdVoters,
	"verify":   decideCommand(true),
	"reject":   decideCommand(false),
	"ask":      cmdAsk,
}

func newFlagSet(name string, a *app) *flag.FlagSet {
	fs := flag.NewFlagSet("votectl "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseRole(s string) (models.Role, error) {
	switch models.Role(strings.ToLower(s)) {
	case models.RoleAdmin:
		return models.RoleAdmin, nil
	case models.RoleVoter:
		return models.RoleVoter, nil
	default:
		return "", fmt.Errorf("--as must be admin or voter, got %q", s)
	}
}

func (a *app) saveSession(ctx context.Context) error {
	if err := a.store.Save(ctx, a.sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	var form apiclient.RegistrationForm
	fs := newFlagSet("register", a)
	fs.StringVar(&form.Username, "username", "", "Username")
	fs.StringVar(&form.Email, "email", "", "Email address")
	fs.StringVar(&form.Password, "password", os.Getenv("VOTECTL_PASSWORD"), "Password")
	fs.StringVar(&form.Age, "age", "", "Age in years")
	fs.StringVar(&form.Gender, "gender", "", "Gender")
	fs.StringVar(&form.Region, "region", "", "Region")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	result, err := a.api.Register(ctx, form)
	if err != nil {
		return err
	}
	if a.opts.JSON {
		return a.printJSON(result)
	}
	fmt.Fprintln(a.stdout, result.Message)
	if result.Voter != nil {
		fmt.Fprintf(a.stdout, "id: %s  status: %s\n", result.Voter.ID, result.Voter.Status.Label())
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	var as, username, password string
	fs := newFlagSet("login", a)
	fs.StringVar(&as, "as", "voter", "admin or voter")
	fs.StringVar(&username, "username", "", "Username")
	fs.StringVar(&password, "password", os.Getenv("VOTECTL_PASSWORD"), "Password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	role, err := parseRole(as)
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return fmt.Errorf("%w: --username and --password are required", errUsage)
	}

	pair, err := a.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	a.sess.SetTokens(role, pair)
	if err := a.saveSession(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "logged in as %s %s\n", role, username)
	return nil
}

func cmdRefresh(ctx context.Context, a *app, args []string) error {
	var as string
	fs := newFlagSet("refresh", a)
	fs.StringVar(&as, "as", "voter", "admin or voter")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	role, err := parseRole(as)
	if err != nil {
		return err
	}

	refresh, err := a.sess.Refresh(role)
	if err != nil {
		return err
	}
	pair, err := a.api.Refresh(ctx, refresh)
	if err != nil {
		return err
	}
	a.sess.SetTokens(role, pair)
	if err := a.saveSession(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s token refreshed\n", role)
	return nil
}

// cmdLogout clears the local tokens even when the server call fails.
func cmdLogout(ctx context.Context, a *app, args []string) error {
	var as string
	fs := newFlagSet("logout", a)
	fs.StringVar(&as, "as", "voter", "admin or voter")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	role, err := parseRole(as)
	if err != nil {
		return err
	}

	token, err := a.sess.Token(role)
	if err != nil {
		return err
	}
	refresh, _ := a.sess.Refresh(role)
	apiErr := a.api.Logout(ctx, token, refresh)
	if apiErr != nil {
		a.logger.Warn("Server logout failed", zap.Error(apiErr))
	}

	a.sess.Clear(role)
	if err := a.saveSession(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "logged out %s\n", role)
	return nil
}

func cmdStatus(ctx context.Context, a *app, args []string) error {
	token, err := a.sess.Token(models.RoleVoter)
	if err != nil {
		return err
	}
	status, err := a.api.VoterStatus(ctx, token)
	if err != nil {
		return err
	}
	if a.opts.JSON {
		return a.printJSON(models.StatusResponse{IsVerified: status})
	}
	fmt.Fprintln(a.stdout, status.Label())
	return nil
}

func cmdVoters(ctx context.Context, a *app, args []string) error {
	var statusFlag, search string
	fs := newFlagSet("voters", a)
	fs.StringVar(&statusFlag, "status", "all", "all, pending, verified or rejected")
	fs.StringVar(&search, "search", "", "Username or email substring")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	filter, err := voterlist.ParseStatusFilter(statusFlag)
	if err != nil {
		return err
	}

	board := review.NewBoard(a.api, a.sess)
	if err := board.Load(ctx); err != nil {
		return err
	}
	voters := board.View(filter, search)

	if a.opts.JSON {
		return a.printJSON(voters)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tAGE\tREGION\tSTATUS")
	for _, v := range voters {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", v.ID, v.Username, v.Email, v.Age, v.Region, v.Status.Label())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	c := board.Counts()
	fmt.Fprintf(a.stdout, "\nshown %d of %d  (pending %d, verified %d, rejected %d)\n",
		len(voters), c.All, c.Pending, c.Verified, c.Rejected)
	return nil
}

// decideCommand loads the list first so a decided voter is refused without a PATCH.
func decideCommand(decision bool) command {
	return func(ctx context.Context, a *app, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("%w: expected exactly one VOTER_ID", errUsage)
		}

		board := review.NewBoard(a.api, a.sess)
		if err := board.Load(ctx); err != nil {
			return err
		}
		voter, err := board.Decide(ctx, args[0], decision)
		if err != nil {
			return err
		}
		if a.opts.JSON {
			return a.printJSON(voter)
		}
		fmt.Fprintf(a.stdout, "%s (%s) is now %s\n", voter.Username, voter.ID, voter.Status.Label())
		return nil
	}
}

func cmdAsk(_ context.Context, a *app, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stdout, assistant.Greeting)
		for _, q := range assistant.QuickQuestions {
			fmt.Fprintln(a.stdout, "  - "+q)
		}
		return nil
	}
	fmt.Fprintln(a.stdout, assistant.Default().Reply(strings.Join(args, " ")))
	return nil
}

// report prints err for a human and picks the exit code.
func report(w io.Writer, err error) int {
	var verr *apiclient.ValidationError
	var terr *apiclient.TransportError
	var apiErr *apiclient.APIError

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(w, "error:", err)
		return exitUsage
	case errors.Is(err, session.ErrNotLoggedIn), errors.Is(err, apiclient.ErrUnauthorized):
		fmt.Fprintln(w, "error: not logged in or session expired; run votectl login")
		return exitNotLogin
	case errors.As(err, &verr):
		names := make([]string, 0, len(verr.Fields))
		for name := range verr.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "registration rejected:")
		for _, name := range names {
			for _, msg := range verr.Fields[name] {
				fmt.Fprintf(w, "  %s: %s\n", name, msg)
			}
		}
	case errors.As(err, &terr):
		fmt.Fprintln(w, "error: could not reach the election service:", terr.Err)
	case errors.Is(err, review.ErrAlreadyDecided):
		fmt.Fprintln(w, "error: voter has already been decided")
	case errors.Is(err, review.ErrUnconfirmed):
		fmt.Fprintln(w, "error: the election service did not confirm the decision; check with votectl voters")
	case errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError:
		fmt.Fprintln(w, "error: the election service failed; try again later")
	default:
		fmt.Fprintln(w, "error:", err)
	}
	return exitFailure
}
