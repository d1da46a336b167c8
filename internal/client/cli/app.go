// Package cli implements the fileshare command-line client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/fileshare/internal/client/api"
	"github.com/dmitrijs2005/fileshare/internal/client/config"
	"github.com/dmitrijs2005/fileshare/internal/client/session"
	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/admission"
	"github.com/spf13/cobra"
)

type App struct {
	client *api.Client
	policy admission.Policy
	reader *bufio.Reader
	out    io.Writer
}

// NewRootCommand builds the command tree. The API client is created once the
// flags are parsed.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	a := &App{policy: admission.DefaultPolicy(), reader: bufio.NewReader(in), out: out}

	root := &cobra.Command{
		Use:           "fileshare",
		Short:         "Upload and share files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.client = api.New(cfg.ServerURL, cfg.Timeout, session.NewStore(cfg.SessionFile))
			return nil
		},
	}
	root.SetOut(out)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.listCmd(),
		a.uploadCmd(),
		a.downloadCmd(),
		a.shareCmd(),
		a.linkCmd(),
		a.unlinkCmd(),
		a.redeemCmd(),
	)
	return root
}

func (a *App) prompt(value *string, text string) error {
	if *value != "" {
		return nil
	}
	v, err := GetSimpleText(a.reader, text, a.out)
	if err != nil {
		return err
	}
	if v == "" {
		return fmt.Errorf("%s is required", strings.ToLower(text))
	}
	*value = v
	return nil
}

func (a *App) password() (string, error) {
	pw, err := GetPassword(a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) registerCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.prompt(&name, "Name"); err != nil {
				return err
			}
			if err := a.prompt(&email, "Email"); err != nil {
				return err
			}
			pw, err := a.password()
			if err != nil {
				return err
			}
			u, err := a.client.Register(cmd.Context(), name, email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "registered %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (a *App) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.prompt(&email, "Email"); err != nil {
				return err
			}
			pw, err := a.password()
			if err != nil {
				return err
			}
			u, err := a.client.Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "logged in as %s\n", u.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.client.Logout()
		},
	}
}

func (a *App) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List owned and shared files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := a.client.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tOWNER\tCREATED")
			for _, f := range files {
				owner := "shared"
				if f.IsOwner {
					owner = "me"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", f.ID, f.Filename, f.FileType, f.FileSize, owner, f.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func (a *App) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload up to five files in one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cands, err := localCandidates(args)
			if err != nil {
				return err
			}

			kept, dropped := a.policy.PreFilter(cands)
			for _, v := range dropped {
				fmt.Fprintf(a.out, "skipping: %s\n", v)
			}
			if len(kept) == 0 {
				return errors.New("nothing to upload")
			}

			files, err := a.client.Upload(cmd.Context(), kept)
			if err != nil {
				var apiErr *api.APIError
				if errors.As(err, &apiErr) {
					for _, v := range apiErr.Violations {
						fmt.Fprintf(a.out, "rejected: %s (%s)\n", v.Name, v.Rule)
					}
				}
				return err
			}
			for _, f := range files {
				fmt.Fprintf(a.out, "uploaded %s as %s\n", f.Filename, f.ID)
			}
			return nil
		},
	}
}

// localCandidates describes files on disk, guessing the type from the
// extension.
func localCandidates(paths []string) ([]admission.Candidate, error) {
	cands := make([]admission.Candidate, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if ct == "" {
			ct = "application/octet-stream"
		}
		path := p
		cands = append(cands, admission.Candidate{
			Name:        filepath.Base(p),
			ContentType: ct,
			Size:        info.Size(),
			Open:        func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return cands, nil
}

func (a *App) downloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download FILE_ID",
		Short: "Download a file you own or that was shared with you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.Download(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.save(d, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path (default: the original file name)")
	return cmd
}

func (a *App) redeemCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "redeem TOKEN_OR_URL",
		Short: "Download a file through a share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.Redeem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.save(d, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path (default: the original file name)")
	return cmd
}

// save writes the body to dst, or to the server-supplied name in the working
// directory. "-" writes to the command output.
func (a *App) save(d *api.Download, dst string) error {
	defer d.Body.Close()

	if dst == "-" {
		_, err := io.Copy(a.out, d.Body)
		return err
	}
	if dst == "" {
		dst = filepath.Base(d.Filename)
		if dst == "" || dst == "." || dst == string(filepath.Separator) {
			return errors.New("server sent no file name, use --output")
		}
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, d.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	fmt.Fprintf(a.out, "saved %s (%d bytes)\n", dst, n)
	return nil
}

func (a *App) shareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share FILE_ID EMAIL...",
		Short: "Grant registered users access to a file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.Share(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, res.Message)
			for _, email := range res.NotFound {
				fmt.Fprintf(a.out, "no such user: %s\n", email)
			}
			return nil
		},
	}
}

func (a *App) linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link FILE_ID",
		Short: "Create a share link, replacing any active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.client.CreateLink(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, l.ShareLink)
			return nil
		},
	}
}

func (a *App) unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink FILE_ID",
		Short: "Revoke the active share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.RevokeLink(cmd.Context(), args[0])
		},
	}
}

// Execute runs the root command and reports a missing session in plain words.
func Execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return errors.New("not logged in, run `fileshare login` first")
	}
	return err
}
