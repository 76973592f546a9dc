// Command qr_photo_cli talks to a running QR photo server. The token pair
// from "login" is kept in a session file and passed to later commands.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"qr_photo/internal/client"
	"qr_photo/internal/transport/http/dto"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const usage = `usage: qr_photo_cli [-server URL] [-session FILE] <command> [args]

commands:
  login <username> <password>
  logout
  me
  sessions [true|false|all]
  session-create <name> [description]
  session-activate <id>
  session-deactivate <id>
  session-qr <id> <out.png>
  photos <session-id>
  watch <session-id>
  upload <session-id> <file>
  download <out.zip> <photo-id>...
  users
  user-create <username> <password> [session-id...]
  user-delete <id>
`

func main() {
	server := flag.String("server", envOr("QR_PHOTO_SERVER", "http://localhost:8080"), "server base URL")
	sessionFile := flag.String("session", defaultSessionFile(), "file holding the login session")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cli := &cli{
		api:         client.New(*server),
		sessionFile: *sessionFile,
	}

	if err := cli.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

type cli struct {
	api         *client.Client
	sessionFile string
}

var errUsage = errors.New("wrong arguments, run with -h for usage")

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		sess, err := c.api.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if err := c.saveSession(sess); err != nil {
			return err
		}
		fmt.Println(color.GreenString("logged in as"), args[0])
		return nil

	case "logout":
		sess, err := c.loadSession()
		if err != nil {
			return err
		}
		if err := c.api.Logout(ctx, sess); err != nil {
			return err
		}
		return os.Remove(c.sessionFile)

	case "upload":
		if len(args) != 2 {
			return errUsage
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		photo, err := c.api.UploadPhoto(ctx, id, filepath.Base(args[1]), "", data)
		if err != nil {
			return err
		}
		fmt.Println(photo.ID)
		return nil
	}

	sess, err := c.loadSession()
	if err != nil {
		return err
	}

	return c.runAuthenticated(ctx, sess, cmd, args)
}

func (c *cli) runAuthenticated(ctx context.Context, sess client.Session, cmd string, args []string) error {
	switch cmd {
	case "me":
		user, err := c.api.Me(ctx, sess)
		if err != nil {
			return err
		}
		return printJSON(user)

	case "sessions":
		active := ""
		if len(args) > 0 {
			active = args[0]
		}
		sessions, err := c.api.ListSessions(ctx, sess, active)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tACTIVE\tCREATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", s.ID, s.Name, s.IsActive, s.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "session-create":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		var desc *string
		if len(args) == 2 {
			desc = &args[1]
		}
		s, err := c.api.CreateSession(ctx, sess, args[0], desc)
		if err != nil {
			return err
		}
		return printJSON(s)

	case "session-activate", "session-deactivate":
		id, err := oneID(args)
		if err != nil {
			return err
		}
		s, err := c.api.SetSessionActive(ctx, sess, id, cmd == "session-activate")
		if err != nil {
			return err
		}
		return printJSON(s)

	case "session-qr":
		if len(args) != 2 {
			return errUsage
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		qr, err := c.api.SessionQR(ctx, sess, id)
		if err != nil {
			return err
		}
		png, err := base64.StdEncoding.DecodeString(qr.QRCode)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], png, 0o644); err != nil {
			return err
		}
		fmt.Println(qr.UploadURL)
		return nil

	case "photos":
		id, err := oneID(args)
		if err != nil {
			return err
		}
		photos, err := c.api.ListSessionPhotos(ctx, sess, id)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILENAME\tTYPE\tSIZE\tUPLOADED")
		for _, p := range photos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Filename, p.ContentType, p.FileSize, p.UploadedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "watch":
		id, err := oneID(args)
		if err != nil {
			return err
		}
		watchCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		events, err := c.api.Watch(watchCtx, sess, id)
		if err != nil {
			return err
		}
		fmt.Println(color.CyanString("watching"), id, "(ctrl-c to stop)")
		for e := range events {
			fmt.Printf("%s %-15s %s %s (%d bytes)\n", e.At.Local().Format("15:04:05"), e.Type, e.PhotoID, e.Filename, e.FileSize)
		}
		return nil

	case "download":
		if len(args) < 2 {
			return errUsage
		}
		ids := make([]uuid.UUID, 0, len(args)-1)
		for _, raw := range args[1:] {
			id, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		name, err := c.api.BulkDownload(ctx, sess, ids, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(args[0])
			return err
		}
		fmt.Println(color.GreenString("saved"), args[0], "("+name+")")
		return nil

	case "users":
		users, err := c.api.ListUsers(ctx, sess)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tSUPERADMIN\tSESSIONS")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", u.ID, u.Username, u.IsSuperadmin, len(u.AllowedSessions))
		}
		return w.Flush()

	case "user-create":
		if len(args) < 2 {
			return errUsage
		}
		req := dto.CreateUserRequest{Username: args[0], Password: args[1]}
		for _, raw := range args[2:] {
			id, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			req.AllowedSessions = append(req.AllowedSessions, id)
		}
		user, err := c.api.CreateUser(ctx, sess, req)
		if err != nil {
			return err
		}
		return printJSON(user)

	case "user-delete":
		id, err := oneID(args)
		if err != nil {
			return err
		}
		return c.api.DeleteUser(ctx, sess, id)
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func (c *cli) loadSession() (client.Session, error) {
	b, err := os.ReadFile(c.sessionFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return client.Session{}, errors.New("not logged in, run login first")
		}
		return client.Session{}, err
	}

	var sess client.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return client.Session{}, fmt.Errorf("read session file: %w", err)
	}
	return sess, nil
}

func (c *cli) saveSession(sess client.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.sessionFile, b, 0o600)
}

func oneID(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, errUsage
	}
	return uuid.Parse(args[0])
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".qr_photo_session.json"
	}
	return filepath.Join(dir, "qr_photo", "session.json")
}
