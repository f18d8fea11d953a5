package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/modfence/modfence/config"
	"github.com/modfence/modfence/graph"
	"github.com/modfence/modfence/parser"
	"github.com/modfence/modfence/policy"
	"github.com/modfence/modfence/record"
	"github.com/modfence/modfence/repository"
	"github.com/modfence/modfence/resolver"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(os.Args[1:], os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "policy":
		return runPolicy(args[1:], stdout, stderr)
	case "record":
		return runRecord(args[1:], stdout, stderr)
	case "graph":
		return runGraph(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	}
	fmt.Fprintf(stderr, "error: unknown command %q\n", args[0])
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: modfence <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  policy   generate a least-privilege policy document for a module graph")
	fmt.Fprintln(w, "  record   emit the static module record of one module")
	fmt.Fprintln(w, "  graph    print the dependency tree below an entry module")
}

// session bundles the services a graph-backed command needs: storage, the
// detected workspace, its configuration, and a module graph wired to a
// workspace-aware resolver and package attributor.
type session struct {
	fs        afs.Service
	workspace *repository.Workspace
	config    *config.Config
	graph     *graph.Graph
}

func newSession(ctx context.Context, entry string) (*session, error) {
	fs := afs.New()
	detector := repository.New(repository.WithFS(fs))
	workspace, err := detector.DetectWorkspace(ctx, entry)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx, fs, workspace.Root)
	if err != nil {
		return nil, err
	}
	node := resolver.NewNode(
		resolver.WithFS(fs),
		resolver.WithExtensions(cfg.Resolver.Extensions...),
	)
	g := graph.New(node, detector.Packages(workspace),
		graph.WithFS(fs),
		graph.WithConfig(cfg.Globals),
	)
	return &session{fs: fs, workspace: workspace, config: cfg, graph: g}, nil
}

func runPolicy(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("modfence policy", flag.ContinueOnError)
	flags.SetOutput(stderr)
	entry := flags.String("entry", "", "entry module to analyze")
	out := flags.String("out", "", "destination (default <workspace>/modfence/policy.json)")
	includeRoot := flags.Bool("include-root", false, "keep the workspace's own package in the document")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: modfence policy -entry <module> [-out <file>] [-include-root]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *entry == "" {
		fmt.Fprintln(stderr, "error: -entry is required")
		flags.Usage()
		return 2
	}
	ctx := context.Background()
	sess, err := newSession(ctx, normalize(*entry))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if _, err := sess.graph.Load(ctx, normalize(*entry)); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer sess.graph.Reset()
	builder := policy.NewBuilder(
		policy.WithRootPackage(sess.workspace.Name),
		policy.WithIncludeRoot(*includeRoot || sess.config.Policy.IncludeRoot),
	)
	documents := []*policy.Document{builder.Build(sess.graph.Modules())}
	for _, location := range sess.config.OverrideLocations(sess.workspace.Root) {
		override, err := policy.ReadDocument(ctx, sess.fs, location)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		documents = append(documents, override)
	}
	destination := *out
	if destination == "" {
		destination = url.Join(sess.workspace.Root, "modfence", "policy.json")
	}
	if err := policy.WriteDocument(ctx, sess.fs, destination, policy.MergeDocuments(documents...)); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %v\n", destination)
	return 0
}

func runRecord(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("modfence record", flag.ContinueOnError)
	flags.SetOutput(stderr)
	module := flags.String("module", "", "module to summarize")
	out := flags.String("out", "", "destination (default stdout)")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: modfence record -module <file> [-out <file>]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *module == "" {
		fmt.Fprintln(stderr, "error: -module is required")
		flags.Usage()
		return 2
	}
	ctx := context.Background()
	fs := afs.New()
	location := normalize(*module)
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to load module %v: %v\n", location, err)
		return 1
	}
	mod, err := parser.New().Parse(ctx, location, data)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer mod.Close()
	encoded, err := json.MarshalIndent(record.Build(mod), "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to encode record: %v\n", err)
		return 1
	}
	encoded = append(encoded, '\n')
	if *out == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return 1
		}
		return 0
	}
	if err := fs.Upload(ctx, *out, 0644, bytes.NewReader(encoded)); err != nil {
		fmt.Fprintf(stderr, "error: failed to write record %v: %v\n", *out, err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %v\n", *out)
	return 0
}

func runGraph(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("modfence graph", flag.ContinueOnError)
	flags.SetOutput(stderr)
	entry := flags.String("entry", "", "entry module to analyze")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: modfence graph -entry <module>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *entry == "" {
		fmt.Fprintln(stderr, "error: -entry is required")
		flags.Usage()
		return 2
	}
	ctx := context.Background()
	sess, err := newSession(ctx, normalize(*entry))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	root, err := sess.graph.Load(ctx, normalize(*entry))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer sess.graph.Reset()
	fmt.Fprintln(stdout, root.Location)
	sess.graph.Visit(root, func(edge graph.Edge) bool {
		marker := ""
		if edge.Cycle {
			marker = " (cycle)"
		}
		fmt.Fprintf(stdout, "%s%s%s\n", treePrefix(edge.Branches), edge.Specifier, marker)
		return true
	})
	return 0
}

// treePrefix renders the box-drawing margin for one edge: a continuation
// bar per still-open ancestor level and the branch glyph for the edge
// itself.
func treePrefix(branches []bool) string {
	var b strings.Builder
	for i, last := range branches {
		switch {
		case i == len(branches)-1 && last:
			b.WriteString("└── ")
		case i == len(branches)-1:
			b.WriteString("├── ")
		case last:
			b.WriteString("    ")
		default:
			b.WriteString("│   ")
		}
	}
	return b.String()
}

// normalize absolutizes plain file paths so workspace detection can walk
// all the way to the filesystem root; URL locations pass through untouched.
func normalize(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return location
}
