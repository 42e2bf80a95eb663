package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/lawtrack/internal/app"
	"github.com/raysh454/lawtrack/internal/compare"
	"github.com/raysh454/lawtrack/internal/hierarchy"
	"github.com/raysh454/lawtrack/internal/mcpserver"
	"github.com/raysh454/lawtrack/internal/server"
	"github.com/raysh454/lawtrack/internal/tracker"
)

const timeLayout = "2006-01-02 15:04:05"

// ─── Tracked laws ──────────────────────────────────────────────────────

func (rt *runtime) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <law name>...",
		Short: "Start tracking one or more statutes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				var failed int
				for _, q := range args {
					law, err := a.Orch.AddLaw(cmd.Context(), q)
					if err != nil {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", errorStyle.Render("✗"), q, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s (공포일자 %s)\n", okStyle.Render("✓"), law.Name, law.PubDate)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d laws not added", failed, len(args))
				}
				return nil
			})
		},
	}
}

func (rt *runtime) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <law name>",
		Short: "Stop tracking a statute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				if err := a.Orch.RemoveLaw(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s 제거 완료\n", okStyle.Render("✓"), args[0])
				return nil
			})
		},
	}
}

func (rt *runtime) listCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked statutes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				laws, err := a.Orch.ListLaws(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, laws)
				}
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("추적 중인 법령 (%d)", len(laws))))
				for _, l := range laws {
					checked := "-"
					if l.LastChecked != nil {
						checked = l.LastChecked.Local().Format(timeLayout)
					}
					fmt.Fprintf(out, "  %s  %s %s  %s %s  %s %d\n",
						l.Name,
						labelStyle.Render("공포일자"), l.LastPubDate,
						labelStyle.Render("마지막확인"), checked,
						labelStyle.Render("변경"), l.ChangeCount)
				}
				return nil
			})
		},
	}
	jsonFlag(cmd.Flags(), &asJSON, "print JSON")
	return cmd
}

func (rt *runtime) bulkAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-add <file|->",
		Short: "Add every statute named in a file, one per line",
		Long:  "Blank lines and lines starting with '#' are ignored. Use - to read standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				results, err := a.Orch.BulkAdd(cmd.Context(), r)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				counts := map[tracker.BulkStatus]int{}
				for _, res := range results {
					counts[res.Status]++
					switch res.Status {
					case tracker.BulkAdded:
						fmt.Fprintf(out, "%s %s\n", okStyle.Render("추가"), res.Name)
					case tracker.BulkSkipped:
						fmt.Fprintf(out, "%s %s\n", labelStyle.Render("건너뜀"), res.Query)
					default:
						fmt.Fprintf(out, "%s %s: %s\n", errorStyle.Render("실패"), res.Query, res.Error)
					}
				}
				fmt.Fprintf(out, "\n추가 %d, 건너뜀 %d, 실패 %d\n",
					counts[tracker.BulkAdded], counts[tracker.BulkSkipped], counts[tracker.BulkFailed])
				return nil
			})
		},
	}
}

// ─── Cycle ─────────────────────────────────────────────────────────────

func (rt *runtime) checkCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every tracked statute for a new publication",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				report, err := a.Orch.CheckUpdates(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, report)
				}
				printReport(out, report)
				return nil
			})
		},
	}
	jsonFlag(cmd.Flags(), &asJSON, "print the cycle report as JSON")
	return cmd
}

func printReport(out io.Writer, report *tracker.CycleReport) {
	for _, o := range report.Outcomes {
		line := fmt.Sprintf("%-10s %s", stateStyle(o.State).Render(string(o.State)), o.Name)
		switch {
		case o.Update != nil:
			line += fmt.Sprintf("  %s → %s", o.Update.PrevPubDate, o.Update.CurPubDate)
			if o.Update.Artifact != nil {
				line += "  " + labelStyle.Render(*o.Update.Artifact)
			}
		case o.State == tracker.StateFailed:
			line += "  " + labelStyle.Render(fmt.Sprintf("[%s] %s", o.Stage, o.Reason))
		}
		fmt.Fprintln(out, line)
	}
	summary := fmt.Sprintf("변경 %d  변경없음 %d  실패 %d", report.Succeeded, report.Unchanged, report.Failed)
	if len(report.Notified) > 0 {
		channels := make([]string, 0, len(report.Notified))
		for name, ok := range report.Notified {
			mark := "✓"
			if !ok {
				mark = "✗"
			}
			channels = append(channels, name+" "+mark)
		}
		sort.Strings(channels)
		summary += "\n알림: " + strings.Join(channels, ", ")
	}
	fmt.Fprintln(out, boxStyle.Render(summary))
}

func (rt *runtime) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded changes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				recs, err := a.Orch.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "기록된 변경사항이 없습니다.")
					return nil
				}
				for _, r := range recs {
					artifact := "-"
					if r.Artifact != nil {
						artifact = *r.Artifact
					}
					fmt.Fprintf(out, "%s  %s  %s → %s  %s\n",
						labelStyle.Render(r.CheckedAt.Local().Format(timeLayout)),
						changedStyle.Render(r.LawName), r.PrevPubDate, r.CurPubDate, artifact)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records")
	return cmd
}

func (rt *runtime) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the tracked set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				st, err := a.Orch.Stats(cmd.Context())
				if err != nil {
					return err
				}
				last := "-"
				if st.LastCheck != nil {
					last = st.LastCheck.Local().Format(timeLayout)
				}
				body := fmt.Sprintf("추적 법령  %d\n총 변경    %d\n마지막확인 %s", st.Tracked, st.TotalChanges, last)
				fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(body))
				return nil
			})
		},
	}
}

// ─── Comparison ────────────────────────────────────────────────────────

const (
	formatUnified    = "unified"
	formatSideBySide = "side-by-side"
	formatRich       = "rich"
	formatTerminal   = "terminal"
)

func (rt *runtime) compareCommand() *cobra.Command {
	var format, label, outPath string
	cmd := &cobra.Command{
		Use:   "compare <old file> <new file>",
		Short: "Compare two text files with the statute renderers",
		Args:  cobra.ExactArgs(2),
		// Runs locally; no config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			oldLines, err := compare.ReadLines(args[0])
			if err != nil {
				return err
			}
			newLines, err := compare.ReadLines(args[1])
			if err != nil {
				return err
			}
			if label == "" {
				label = filepath.Base(args[1])
			}
			req := compare.Request{Label: label, Old: oldLines, New: newLines, GeneratedAt: time.Now()}
			return renderComparison(cmd.OutOrStdout(), req, format, outPath)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTerminal, "unified | side-by-side | rich | terminal")
	cmd.Flags().StringVar(&label, "label", "", "document label (default: new file name)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

// renderComparison prints the chosen view, or writes it to outPath through the
// atomic renderers and prints the path written.
func renderComparison(out io.Writer, req compare.Request, format, outPath string) error {
	if format == formatTerminal {
		if outPath != "" {
			return errors.New("terminal format writes to stdout only")
		}
		return compare.RenderTerminal(out, req)
	}

	if outPath == "" {
		var body string
		var err error
		switch format {
		case formatUnified:
			body = compare.UnifiedText(req)
		case formatSideBySide:
			body, err = compare.SideBySideHTML(req)
		case formatRich:
			body, err = compare.RichHTML(req, compare.RichOptions{})
		default:
			return fmt.Errorf("unknown format %q", format)
		}
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, body)
		return err
	}

	var (
		target string
		err    error
	)
	switch format {
	case formatUnified:
		target, err = compare.RenderUnified(req, outPath)
	case formatSideBySide:
		target, err = compare.RenderSideBySide(req, outPath)
	case formatRich:
		target, err = compare.RenderRich(req, compare.RichOptions{}, outPath)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", okStyle.Render("저장"), target)
	return nil
}

func (rt *runtime) exportPDFCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export-pdf <artifact>",
		Short: "Print a stored comparison artifact to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if outPath == "" {
				outPath = strings.TrimSuffix(name, ".html") + ".pdf"
			}
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				target, err := a.Orch.ExportArtifactPDF(cmd.Context(), name, outPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("저장"), target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: <artifact>.pdf)")
	return cmd
}

// ─── Relationships ─────────────────────────────────────────────────────

func (rt *runtime) graphCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show how the tracked statutes relate to each other",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.Application) error {
				g, err := a.Orch.Graph(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, g)
				}
				printGraph(out, g)
				return nil
			})
		},
	}
	jsonFlag(cmd.Flags(), &asJSON, "print node-link JSON")
	return cmd
}

func printGraph(out io.Writer, g hierarchy.GraphData) {
	byCategory := map[string][]hierarchy.Node{}
	for _, n := range g.Nodes {
		byCategory[n.Category] = append(byCategory[n.Category], n)
	}
	cats := make([]string, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		ci, cj := g.Categories[cats[i]], g.Categories[cats[j]]
		if ci.Level != cj.Level {
			return ci.Level < cj.Level
		}
		return cats[i] < cats[j]
	})
	for _, c := range cats {
		fmt.Fprintln(out, titleStyle.Render(c))
		for _, n := range byCategory[c] {
			name := n.Name
			if n.Status == hierarchy.StatusUpdated {
				name = changedStyle.Render(name + " *")
			}
			fmt.Fprintf(out, "  %s %s\n", name, labelStyle.Render(n.Description))
		}
	}
	if len(g.Links) > 0 {
		fmt.Fprintln(out, titleStyle.Render("관계"))
		for _, l := range g.Links {
			fmt.Fprintf(out, "  %s ↔ %s\n", l.Source, l.Target)
		}
	}
}

// ─── Servers ───────────────────────────────────────────────────────────

func (rt *runtime) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				rt.cfg.Server.ListenAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return rt.withApp(ctx, func(a *app.Application) error {
				srv, err := server.NewServer(server.Config{ListenAddr: a.Config.Server.ListenAddr}, a.Orch, a.Logger)
				if err != nil {
					return err
				}
				httpSrv := srv.HTTPServer()
				errCh := make(chan error, 1)
				go func() { errCh <- httpSrv.ListenAndServe() }()
				a.Logger.Info("dashboard API listening", lf("addr", httpSrv.Addr))

				select {
				case err := <-errCh:
					if !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				case <-ctx.Done():
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.listen_addr)")
	return cmd
}

func (rt *runtime) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tracker as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return rt.withApp(ctx, func(a *app.Application) error {
				s, err := mcpserver.New(a.Orch, app.Version, a.Logger)
				if err != nil {
					return err
				}
				return s.Run(ctx)
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
