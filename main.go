package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/coreos/pkg/capnslog"
	"github.com/fatih/color"
	"github.com/pontaoski/tawash/compiler"
	"github.com/pontaoski/tawash/config"
	"github.com/pontaoski/tawash/errors"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/tawash", "main")

const sourceSuffix = ".rs"

// readDirectory loads every source file in dir, sorted by name so that
// builds do not depend on directory order.
func readDirectory(fs afero.Fs, dir string) ([]compiler.Source, error) {
	fis, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	sort.Slice(fis, func(i, j int) bool { return fis[i].Name() < fis[j].Name() })

	var sources []compiler.Source
	for _, fi := range fis {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), sourceSuffix) {
			continue
		}
		data, err := afero.ReadFile(fs, filepath.Join(dir, fi.Name()))
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		sources = append(sources, compiler.Source{Name: fi.Name(), Text: string(data)})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no %s files in %s", sourceSuffix, dir)
	}
	plog.Debugf("read %d sources", len(sources))
	return sources, nil
}

type tool struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	placeColor = color.New(color.Bold)
)

// report prints err as a diagnostic. With trace, the wrapped stack is
// printed too.
func (t *tool) report(err error, trace bool) {
	d, ok := errors.AsDiagnostic(err)
	if !ok {
		errorColor.Fprint(t.stderr, "error")
		fmt.Fprintf(t.stderr, ": %s\n", tracerr.Unwrap(err))
	} else {
		placeColor.Fprint(t.stderr, d.Span().From.String()+": ")
		errorColor.Fprint(t.stderr, d.Kind().String())
		if v, ok := d.(errors.ValidationError); ok {
			fmt.Fprintln(t.stderr, ": unsafe script rejected")
			for _, violation := range v.Violations {
				fmt.Fprintf(t.stderr, "\t%s\n", violation)
			}
		} else {
			fmt.Fprintf(t.stderr, ": %s\n", d.Message())
		}
	}
	if trace {
		tracerr.PrintSourceColor(err)
	}
}

func setupLogging(w io.Writer, verbose bool) {
	capnslog.SetFormatter(capnslog.NewPrettyFormatter(w, verbose))
	if verbose {
		capnslog.SetGlobalLogLevel(capnslog.DEBUG)
	} else {
		capnslog.SetGlobalLogLevel(capnslog.NOTICE)
	}
}

// module loads the module information in the working directory.
func (t *tool) module() (config.Module, error) {
	m, err := config.Load(t.fs, ".")
	if err != nil {
		return config.Module{}, err
	}
	return m.WithDefaults(), nil
}

func (t *tool) compile(c *cli.Context) (*compiler.Script, config.Module, error) {
	setupLogging(t.stderr, c.Bool("verbose"))

	m, err := t.module()
	if err != nil {
		return nil, m, err
	}
	if entry := c.String("entry"); entry != "" {
		m.Entry = entry
	}
	sources, err := readDirectory(t.fs, ".")
	if err != nil {
		return nil, m, err
	}
	s, err := compiler.Compile(compiler.Options{
		Entry:    m.Entry,
		MaxDepth: m.MaxDepth,
		TypeInfo: m.TypeInfo,
	}, sources...)
	return s, m, err
}

func compileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "entry",
			Usage: "function the script runs",
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "print the stack of a failure",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log every compiler stage",
		},
	}
}

func (t *tool) app() *cli.App {
	return &cli.App{
		Name:      "tawash",
		Usage:     "compile a subset of Rust to POSIX sh",
		Writer:    t.stdout,
		ErrWriter: t.stderr,
		// failures are reported where they happen; main only sets the
		// exit status
		ExitErrHandler: func(context *cli.Context, err error) {},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "init a directory",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						err := fmt.Errorf("no module name provided")
						t.report(err, false)
						return err
					}
					if err := config.Save(t.fs, ".", config.Module{Package: name}); err != nil {
						t.report(err, false)
						return err
					}
					return nil
				},
			},
			{
				Name:  "build",
				Usage: "build the module in the working directory",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
					},
					&cli.BoolFlag{
						Name:  "dump",
						Usage: "print the script instead of writing it",
					},
					&cli.BoolFlag{
						Name: "dump-ast",
					},
					&cli.BoolFlag{
						Name: "dump-ir",
					},
				}, compileFlags()...),
				Action: func(c *cli.Context) error {
					s, m, err := t.compile(c)
					if err != nil {
						t.report(err, c.Bool("trace"))
						return err
					}

					p := repr.New(t.stdout)
					if c.Bool("dump-ast") {
						p.Println(s.Files)
					}
					if c.Bool("dump-ir") {
						p.Println(s.Program)
					}
					if c.Bool("dump") {
						fmt.Fprint(t.stdout, s.Text)
						return nil
					}

					out := c.String("output")
					if out == "" {
						out = m.Output
					}
					if err := afero.WriteFile(t.fs, out, []byte(s.Text), 0755); err != nil {
						t.report(tracerr.Wrap(err), c.Bool("trace"))
						return err
					}
					// WriteFile keeps the mode of an existing file
					if err := t.fs.Chmod(out, 0755); err != nil {
						t.report(tracerr.Wrap(err), c.Bool("trace"))
						return err
					}
					plog.Infof("wrote %s", out)
					return nil
				},
			},
			{
				Name:  "check",
				Usage: "report diagnostics without writing a script",
				Flags: compileFlags(),
				Action: func(c *cli.Context) error {
					if _, _, err := t.compile(c); err != nil {
						t.report(err, c.Bool("trace"))
						return err
					}
					fmt.Fprintln(t.stdout, "ok")
					return nil
				},
			},
			{
				Name:      "typeinfo",
				Usage:     "dump typeinfo from a compiled script",
				ArgsUsage: "SCRIPT",
				Action: func(c *cli.Context) error {
					data, err := getTypeInfoFromFile(t.fs, c.Args().Get(0))
					if err != nil {
						t.report(err, false)
						return err
					}
					repr.New(t.stdout).Println(data)
					return nil
				},
			},
		},
	}
}

func main() {
	t := &tool{fs: afero.NewOsFs(), stdout: os.Stdout, stderr: os.Stderr}
	if err := t.app().Run(os.Args); err != nil {
		os.Exit(1)
	}
}
