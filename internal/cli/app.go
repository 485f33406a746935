// Package cli implements a small interactive console over the storage
// coordinator, mainly useful for operating a deployment without the
// dashboard UI: registering users, inspecting uploads and preferences.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/betjuliano/sefa-dashboard/internal/backend"
	"github.com/betjuliano/sefa-dashboard/internal/tabular"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// App drives the interactive loop. The current email is remembered after a
// successful login so upload and preference commands apply to that account.
type App struct {
	coord  *backend.Coordinator
	reader *bufio.Reader
	out    io.Writer

	email string
}

// NewApp builds an App reading commands from in and writing to out.
func NewApp(coord *backend.Coordinator, in io.Reader, out io.Writer) *App {
	return &App{
		coord:  coord,
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run processes commands until "exit" or EOF.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "sefa-dashboard storage console ('help' for commands)")

	for {
		fmt.Fprint(a.out, "$ ")
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		if cmd == "exit" || cmd == "quit" {
			return
		}
		if err := a.dispatch(ctx, cmd, args); err != nil {
			fmt.Fprintf(a.out, "error: %v\n", err)
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		a.printHelp()
		return nil
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "upload":
		return a.upload(ctx, args)
	case "list":
		return a.list(ctx)
	case "load":
		return a.load(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "prefs":
		return a.showPrefs(ctx)
	case "goal":
		return a.setGoal(ctx, args)
	case "status":
		return a.status(ctx)
	case "switch":
		return a.switchBackend(ctx, args)
	case "users":
		return a.users(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) printHelp() {
	fmt.Fprint(a.out, `commands:
  register            create an account
  login               authenticate and select the active account
  upload <file.csv>   archive a dataset for the active account
  list                list archived uploads
  load <id>           print the shape of an archived dataset
  delete <id>         delete an archived upload
  prefs               show effective preferences
  goal <value>        set the preference goal
  status              show backend status
  switch local|remote change the active backend
  users               list registered users
  exit
`)
}

func (a *App) requireLogin() error {
	if a.email == "" {
		return fmt.Errorf("log in first")
	}
	return nil
}

func (a *App) register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.coord.Register(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "registered")
	return nil
}

func (a *App) login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	ok, err := a.coord.Authenticate(ctx, email, password)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "invalid credentials")
		return nil
	}

	a.email = email
	fmt.Fprintln(a.out, "logged in")
	return nil
}

func (a *App) upload(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: upload <file.csv>")
	}

	ds, err := tabular.ReadFile(args[0])
	if err != nil {
		return err
	}

	rec, err := a.coord.SaveUpload(ctx, a.email, ds, filepath.Base(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "archived %s (%d rows, %d cols) id=%s\n",
		rec.OriginalFilename, rec.Rows, rec.Columns, rec.ID)
	return nil
}

func (a *App) list(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	records, err := a.coord.ListUploads(ctx, a.email)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "no uploads")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(a.out, "%s  %s  %dx%d  %s\n",
			rec.ID, rec.UploadedAt.Format("2006-01-02 15:04"), rec.Rows, rec.Columns, rec.OriginalFilename)
	}
	return nil
}

func (a *App) load(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: load <id>")
	}

	ds, err := a.coord.LoadUpload(ctx, a.email, args[0])
	if err != nil {
		return err
	}
	if ds == nil {
		fmt.Fprintln(a.out, "not found")
		return nil
	}
	fmt.Fprintf(a.out, "%d rows, %d cols: %s\n",
		ds.RowCount(), ds.ColumnCount(), strings.Join(ds.Columns, ", "))
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <id>")
	}

	ok, err := a.coord.DeleteUpload(ctx, a.email, args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "not found")
		return nil
	}
	fmt.Fprintln(a.out, "deleted")
	return nil
}

func (a *App) showPrefs(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	doc, err := a.coord.GetPreferences(ctx, a.email)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(doc) {
		fmt.Fprintf(a.out, "%s: %v\n", k, doc[k])
	}
	return nil
}

func (a *App) setGoal(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: goal <value>")
	}
	goal, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid goal %q", args[0])
	}

	doc, err := a.coord.GetPreferences(ctx, a.email)
	if err != nil {
		return err
	}
	doc["goal"] = goal

	if err := a.coord.SavePreferences(ctx, a.email, doc); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "saved")
	return nil
}

func (a *App) status(ctx context.Context) error {
	s := a.coord.Status(ctx)
	fmt.Fprintf(a.out, "backend: %s\nforce local: %v\nremote configured: %v\nremote connected: %v\n",
		s.CurrentBackend, s.ForceLocal, s.RemoteConfigured, s.RemoteConnected)
	return nil
}

func (a *App) switchBackend(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "local" && args[0] != "remote") {
		return fmt.Errorf("usage: switch local|remote")
	}
	if a.coord.SwitchBackend(ctx, args[0] == "remote") {
		fmt.Fprintf(a.out, "switched to %s\n", args[0])
	} else {
		fmt.Fprintln(a.out, "switch refused")
	}
	return nil
}

func (a *App) users(ctx context.Context) error {
	users, err := a.coord.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "no registered users")
		return nil
	}
	for _, u := range users {
		fmt.Fprintf(a.out, "%s  %s  last login %s\n",
			u.Key[:12], u.Email, u.LastLogin.Format("2006-01-02 15:04"))
	}
	return nil
}

func sortedKeys(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
