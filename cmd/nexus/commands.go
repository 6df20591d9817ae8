package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/justyntemme/nexus/internal/app"
	"github.com/justyntemme/nexus/internal/config"
	"github.com/justyntemme/nexus/internal/fs"
	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/lister"
	"github.com/justyntemme/nexus/internal/preview"
	"github.com/justyntemme/nexus/internal/search"
	"github.com/justyntemme/nexus/internal/session"
	"github.com/justyntemme/nexus/internal/store"
)

const usage = `commands:
  open [path]          pick a folder (or files) as the new root
  ls [query]           list the current folder, e.g. ls kind:image size:>1mb
  cd <name>            open a subfolder
  back                 go to the parent folder
  reload               list the current folder again
  regrant              ask for access to a folder shown as a placeholder
  forget [path]        drop the read grant of a folder (default: current)
  sort <by> [desc]     order listings by name, size, date or type
  stats                summarize the current folder
  select <name>        select an item
  thumb <name> <out>   write a JPEG thumbnail of a media file
  save <name> <out>    write the preview of an item to a file
  view grid|list       set the view mode
  size small|medium|large
  preview on|off       toggle the preview pane
  defaults             save the current view settings as config defaults
  roots                list suggested and remembered starting folders
  landing              forget the session and return to the start screen
  quit`

type shell struct {
	browser *app.Browser
	console *console
	sys     *fs.System
	thumbs  *preview.Thumbnailer
	gallery *preview.Gallery
	handles *store.HandleStore
	config  *config.Manager
	out     io.Writer

	sortBy  search.SortBy
	sortAsc bool
}

func (s *shell) run(ctx context.Context) error {
	s.sortBy, s.sortAsc = search.SortByName, true

	if s.browser.Restore(ctx) {
		s.printHeader()
	} else {
		fmt.Fprintln(s.out, "no recent folder, use 'open' to pick one ('help' lists commands)")
	}

	for {
		fmt.Fprint(s.out, "> ")
		line, err := s.console.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := s.exec(ctx, cmd, args, strings.TrimSpace(strings.TrimPrefix(line, cmd))); err != nil {
			s.report(err)
		}
	}
}

func (s *shell) exec(ctx context.Context, cmd string, args []string, rest string) error {
	b := s.browser
	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, usage)
		return nil

	case "open":
		if rest != "" {
			s.console.queue(rest)
		}
		if err := b.OpenRoot(ctx); err != nil {
			return err
		}
		s.printHeader()
		return s.list("")

	case "ls":
		return s.list(rest)

	case "cd":
		if rest == "" {
			return errors.New("usage: cd <name>")
		}
		if rest == ".." {
			return s.navigated(b.Back(ctx))
		}
		return s.navigated(b.Descend(ctx, rest))

	case "back":
		return s.navigated(b.Back(ctx))

	case "reload":
		return s.navigated(b.Reload(ctx))

	case "regrant":
		return s.navigated(b.Regrant(ctx))

	case "forget":
		return s.forget(rest)

	case "sort":
		if len(args) == 0 {
			return errors.New("usage: sort name|size|date|type [desc]")
		}
		by, err := search.ParseSortBy(args[0])
		if err != nil {
			return err
		}
		s.sortBy = by
		s.sortAsc = !(len(args) > 1 && args[1] == "desc")
		return s.list("")

	case "stats":
		st := search.Summarize(b.View().Items)
		fmt.Fprintf(s.out, "%d items: %d folders, %d images, %d videos, %d audio, %s\n",
			st.Total, st.Directories, st.Images, st.Videos, st.Audio, humanize.IBytes(uint64(st.Bytes)))
		listing, total := b.LivePreviews()
		fmt.Fprintf(s.out, "previews: %d for this folder, %d live\n", listing, total)
		return nil

	case "select":
		if !b.Select(rest) {
			return fmt.Errorf("%w: %q", app.ErrNotFound, rest)
		}
		return s.describe(rest)

	case "thumb":
		if len(args) != 2 {
			return errors.New("usage: thumb <name> <out.jpg>")
		}
		return s.thumbnail(ctx, args[0], args[1])

	case "save":
		if len(args) != 2 {
			return errors.New("usage: save <name> <out>")
		}
		return s.savePreview(args[0], args[1])

	case "view":
		m, err := session.ParseViewMode(rest)
		if err != nil {
			return err
		}
		return b.SetViewMode(ctx, m)

	case "size":
		size, err := session.ParseItemSize(rest)
		if err != nil {
			return err
		}
		return b.SetItemSize(ctx, size)

	case "preview":
		switch rest {
		case "on":
			return b.SetShowPreview(ctx, true)
		case "off":
			return b.SetShowPreview(ctx, false)
		}
		return errors.New("usage: preview on|off")

	case "defaults":
		p := b.View().Preferences
		err := s.config.SetPreferences(config.PreferencesConfig{
			ViewMode:    string(p.ViewMode),
			ItemSize:    string(p.ItemSize),
			ShowPreview: p.ShowPreview,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "saved to", s.config.Path())
		return nil

	case "roots":
		for _, r := range fs.Roots() {
			fmt.Fprintf(s.out, "  %-16s %s\n", r.Name, r.Path)
		}
		return s.remembered(ctx)

	case "landing":
		if err := b.ReturnToLanding(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "session cleared")
		return nil
	}
	return fmt.Errorf("unknown command %q ('help' lists commands)", cmd)
}

func (s *shell) navigated(err error) error {
	if errors.Is(err, app.ErrSuperseded) {
		return nil
	}
	// a failed listing still changes what is shown
	s.printHeader()
	if err != nil {
		return err
	}
	return s.list("")
}

func (s *shell) printHeader() {
	v := s.browser.View()
	if v.Landing {
		fmt.Fprintln(s.out, "(no folder)")
		return
	}
	trail := append(append([]string(nil), v.Trail...), v.Folder.Name)
	fmt.Fprintf(s.out, "== %s", strings.Join(trail, " / "))
	if v.Folder.IsPlaceholder() && v.Folder.Name != app.FallbackFolderName {
		fmt.Fprint(s.out, "  [no access, use 'regrant' or 'open']")
	}
	fmt.Fprintln(s.out)
}

func (s *shell) list(query string) error {
	v := s.browser.View()
	if v.Landing {
		return app.ErrNoFolder
	}
	items := search.Sort(search.Filter(v.Items, query), s.sortBy, s.sortAsc)
	compact := v.Preferences.ViewMode == session.ViewGrid
	for _, e := range items {
		s.printEntry(e, v.Snapshot, compact)
	}
	if len(items) == 0 {
		fmt.Fprintln(s.out, "  (empty)")
	}
	return nil
}

func (s *shell) printEntry(e lister.Entry, v session.Snapshot, compact bool) {
	mark := " "
	if e.Name == v.Selected {
		mark = "*"
	}
	if e.Kind == host.KindDirectory {
		fmt.Fprintf(s.out, "%s %s/\n", mark, e.Name)
		return
	}
	if compact || e.File == nil {
		fmt.Fprintf(s.out, "%s %s\n", mark, e.Name)
		return
	}
	fmt.Fprintf(s.out, "%s %-40s %8s  %-6s %s\n", mark, e.Name,
		humanize.IBytes(uint64(e.File.Size)), e.Media(), humanize.Time(e.File.ModTime))
}

func (s *shell) describe(name string) error {
	f, ok := s.browser.File(name)
	if !ok {
		fmt.Fprintf(s.out, "selected folder %s\n", name)
		return nil
	}
	fmt.Fprintf(s.out, "%s  %s  %s  modified %s\n", f.Name, f.Type, humanize.IBytes(uint64(f.Size)), humanize.Time(f.ModTime))
	if !s.browser.View().Preferences.ShowPreview {
		return nil
	}
	if u, ok := s.browser.Preview(name); ok && u != "" {
		fmt.Fprintf(s.out, "preview: %s\n", u)
	} else {
		fmt.Fprintln(s.out, "preview: none")
	}
	return nil
}

func (s *shell) thumbnail(ctx context.Context, name, out string) error {
	f, ok := s.browser.File(name)
	if !ok {
		return fmt.Errorf("%w: %q", app.ErrNotFound, name)
	}
	data, err := s.thumbs.Generate(ctx, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.ExpandHome(out), data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "wrote %s (%s)\n", out, humanize.IBytes(uint64(len(data))))
	return nil
}

// forget drops the grant recorded for path, or for the current folder.
func (s *shell) forget(path string) error {
	if path == "" {
		cur := s.browser.View().Folder
		if cur == nil {
			return app.ErrNoFolder
		}
		loc, ok := cur.Handle.(host.Locator)
		if !ok {
			return app.ErrNoHandle
		}
		path = loc.Path()
	}
	s.sys.Revoke(fs.ExpandHome(path))
	fmt.Fprintf(s.out, "dropped access to %s\n", path)
	return nil
}

// remembered lists the folders the handle store still holds.
func (s *shell) remembered(ctx context.Context) error {
	keys, err := s.handles.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	fmt.Fprintln(s.out, "remembered:")
	for _, key := range keys {
		rec, ok, err := s.handles.Lookup(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(s.out, "  %-16s %s\n", rec.Name, rec.Key)
		}
	}
	return nil
}

func (s *shell) savePreview(name, out string) error {
	u, ok := s.browser.Preview(name)
	if !ok || !preview.IsURL(string(u)) {
		return fmt.Errorf("%w for %q", preview.ErrNoPreview, name)
	}
	rc, ctype, err := s.gallery.Registry().Open(u)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(fs.ExpandHome(out))
	if err != nil {
		return err
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "wrote %s (%s, %s)\n", out, ctype, humanize.IBytes(uint64(n)))
	return nil
}

func (s *shell) report(err error) {
	switch {
	case errors.Is(err, host.ErrAborted):
		fmt.Fprintln(s.out, "cancelled")
	case errors.Is(err, app.ErrNoHandle):
		fmt.Fprintln(s.out, "this folder has to be picked again, use 'open'")
	case errors.Is(err, preview.ErrNoPreview):
		fmt.Fprintln(s.out, "no preview available:", err)
	default:
		fmt.Fprintln(s.out, "error:", err)
	}
}
