package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/jbohren-forks/conditional"
	"github.com/jbohren-forks/conditional/gate"
	"github.com/jbohren-forks/conditional/params"
)

func main() {
	var (
		inname, paramsfile, sqlitepath, boltpath, prunefile, policy string
		with                                                         [][2]string
		nl, echo, include, verbose                                   bool
	)
	addwith := func(s string) error {
		d := strings.SplitN(s, "=", 2)
		if len(d) != 2 {
			return fmt.Errorf(`parameter definitions must be "name=value", not %q`, s)
		}
		with = append(with, [2]string{strings.TrimSpace(d[0]), strings.TrimSpace(d[1])})
		return nil
	}
	flag.StringVar(&inname, "in", "", "input file (default stdin if no args given)")
	flag.Func("given", "name=value parameter definition; the value is an expression (any number of times)", addwith)
	flag.StringVar(&paramsfile, "params", "", "YAML or JSON parameter file")
	flag.StringVar(&sqlitepath, "sqlite", "", "SQLite parameter store")
	flag.StringVar(&boltpath, "bolt", "", "bbolt parameter store")
	flag.BoolVar(&nl, "n", false, "parse separate input lines as separate expressions")
	flag.BoolVar(&echo, "echo", false, "print parse trees")
	flag.BoolVar(&include, "include", false, "print whether each expression includes an element as an if condition")
	flag.StringVar(&prunefile, "prune", "", "YAML document to print with excluded elements removed")
	flag.StringVar(&policy, "policy", "abort", "what to do with conditions that fail: abort or exclude")
	flag.BoolVar(&verbose, "v", false, "log debug messages")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cache, err := conditional.NewCache(gate.DefaultCacheSize)
	if err != nil {
		fatal(logger, "creating cache", err)
	}
	env, err := loadParams(logger, paramsfile, sqlitepath, boltpath)
	if err != nil {
		fatal(logger, "loading parameters", err)
	}
	for _, d := range with {
		nm, vl := d[0], d[1]
		r, err := cache.Eval(vl, env)
		if err != nil {
			fatal(logger, "setting "+nm, err)
		}
		env[nm] = r
	}

	pol, err := gate.ParsePolicy(policy)
	if err != nil {
		fatal(logger, "bad -policy", err)
	}
	g, err := gate.New(gate.WithCache(cache), gate.WithLogger(logger), gate.WithPolicy(pol))
	if err != nil {
		fatal(logger, "creating gate", err)
	}
	ctx := context.Background()

	if prunefile != "" {
		if err := prune(ctx, g, prunefile, env); err != nil {
			fatal(logger, "pruning "+prunefile, err)
		}
		if flag.NArg() == 0 && inname == "" {
			return
		}
	}

	var ins []io.RuneScanner
	f, err := infile(inname, flag.NArg() == 0)
	if err != nil {
		fatal(logger, "opening input", err)
	}
	if f != nil {
		ins = append(ins, f)
	}
	for _, arg := range flag.Args() {
		ins = append(ins, strings.NewReader(arg))
	}

	var opts []conditional.ParseOption
	if nl {
		opts = append(opts, conditional.StopOn('\n'))
	}
	var p []*conditional.Expr
	for _, in := range ins {
		for {
			// First check whether we're done with the input.
			if err := skipSpace(in); err != nil {
				if err == io.EOF {
					break
				}
				fatal(logger, "reading input", err)
			}
			a, err := conditional.Parse(in, opts...)
			if err != nil {
				fatal(logger, "parsing", err)
			}
			p = append(p, a)
		}
	}

	failed := false
	for _, a := range p {
		if echo {
			fmt.Printf("%v : ", a)
		}
		if include {
			// Formatted expressions parse to the same expression, so the
			// gate can look them up in the shared cache.
			ok, err := g.Include(ctx, gate.Condition{If: a.String()}, env)
			if err != nil {
				fmt.Println(err)
				failed = true
				continue
			}
			if ok {
				fmt.Println("include")
			} else {
				fmt.Println("exclude")
			}
			continue
		}
		r, err := a.Eval(env)
		if err != nil {
			fmt.Println(err)
			failed = true
			continue
		}
		fmt.Println(r)
	}
	hits, misses := cache.Stats()
	logger.Debug("done", slog.Int("expressions", len(p)), slog.Uint64("cache_hits", hits), slog.Uint64("cache_misses", misses))
	if failed {
		os.Exit(1)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}

// loadParams reads the parameter file and stores in that order, later
// sources overriding earlier ones.
func loadParams(logger *slog.Logger, file, sqlitepath, boltpath string) (conditional.Params, error) {
	var sets []conditional.Params
	if file != "" {
		p, err := params.FromFile(file)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded params", slog.String("file", file), slog.Int("count", len(p)))
		sets = append(sets, p)
	}
	if sqlitepath != "" {
		st, err := params.NewSQLiteStore(sqlitepath)
		if err != nil {
			return nil, err
		}
		p, err := snapshot(st)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded params", slog.String("sqlite", sqlitepath), slog.Int("count", len(p)))
		sets = append(sets, p)
	}
	if boltpath != "" {
		st, err := params.NewBoltStore(boltpath)
		if err != nil {
			return nil, err
		}
		p, err := snapshot(st)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded params", slog.String("bolt", boltpath), slog.Int("count", len(p)))
		sets = append(sets, p)
	}
	return params.Merge(sets...), nil
}

// snapshot loads every parameter from a store and closes it.
func snapshot(st params.Store) (conditional.Params, error) {
	p, err := st.Load()
	if cerr := st.Close(); err == nil {
		err = cerr
	}
	return p, err
}

func prune(ctx context.Context, g *gate.Gate, path string, env conditional.Env) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if err := g.Prune(ctx, &doc, env); err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// skipSpace consumes leading whitespace. It returns io.EOF if nothing else is
// left in the input.
func skipSpace(in io.RuneScanner) error {
	for {
		r, _, err := in.ReadRune()
		if err != nil {
			return err
		}
		if !unicode.IsSpace(r) {
			return in.UnreadRune()
		}
	}
}

func infile(inname string, std bool) (io.RuneScanner, error) {
	var f *os.File
	switch {
	case inname != "" && inname != "-":
		in, err := os.Open(inname)
		if err != nil {
			return nil, err
		}
		f = in
	case inname == "-", std:
		f = os.Stdin
	}
	if f == nil {
		return nil, nil
	}
	return bufio.NewReader(f), nil
}
