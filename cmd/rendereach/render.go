package main

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-rendereach/pkg/collection"
	"github.com/goliatone/go-rendereach/pkg/render"
	"github.com/goliatone/go-rendereach/pkg/render/template"
	"github.com/goliatone/go-rendereach/pkg/render/template/gotemplate"
)

type renderFlags struct {
	items       string
	locals      string
	local       string
	noLocal     bool
	opts        []string
	stream      bool
	sanitize    bool
	separator   string
	interactive bool
	engine      string
}

func newRenderCmd(a *app) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template once per item",
		Long: "Render a template once per item of a YAML or JSON list.\n\n" +
			"Each item is bound to a variable named after the template (partials/row -> row)\n" +
			"unless --local or --no-local is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, args, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.items, "items", "i", "-", "items file, - for stdin")
	flags.StringVar(&f.locals, "locals", "", "YAML file with locals shared by every item")
	flags.StringVar(&f.local, "local", "", "name the item variable instead of deriving it")
	flags.BoolVar(&f.noLocal, "no-local", false, "do not bind the item to any variable")
	flags.StringArrayVarP(&f.opts, "opt", "o", nil, "extra render option key=value (repeatable)")
	flags.BoolVarP(&f.stream, "stream", "s", false, "print each rendering as soon as it completes")
	flags.BoolVar(&f.sanitize, "sanitize", false, "sanitize each rendering")
	flags.StringVar(&f.separator, "separator", "", "text placed between accumulated renderings")
	flags.BoolVar(&f.interactive, "interactive", false, "pick the template from a list")
	flags.StringVar(&f.engine, "engine", engineDefault, "renderer: pongo2 (precompiled routines) or generic (go-template engine)")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, args []string, f renderFlags) error {
	ctx := cmd.Context()
	engine, err := a.engine()
	if err != nil {
		return err
	}

	name, err := a.templateName(cmd, args, f, engine)
	if err != nil {
		return err
	}

	items, err := loadItems(f.items, cmd.InOrStdin())
	if err != nil {
		return err
	}
	opts, err := buildOptions(f, a.cfg)
	if err != nil {
		return err
	}

	separator := a.cfg.Separator
	if cmd.Flags().Changed("separator") {
		separator = f.separator
	}
	reg, err := a.renderers(engine)
	if err != nil {
		return err
	}
	renderer, err := reg.Get(f.engine)
	if err != nil {
		return err
	}
	d := collection.New(renderer,
		collection.WithLogger(a.logger),
		collection.WithSeparator(separator),
	)

	a.logger.Debug("rendering collection",
		zap.String("template", name),
		zap.Int("items", len(items)),
		zap.Bool("stream", f.stream),
		zap.String("engine", f.engine),
	)

	out := cmd.OutOrStdout()
	if !f.stream {
		rendered, err := d.Render(ctx, collection.Values(items), name, opts)
		if err != nil {
			return withLocalHint(err, name, opts)
		}
		_, err = fmt.Fprintln(out, rendered)
		return err
	}

	var writeErr error
	err = d.Stream(ctx, collection.Values(items), name, opts, func(rendered string) {
		if writeErr == nil {
			_, writeErr = fmt.Fprintln(out, rendered)
		}
	})
	return errors.Join(withLocalHint(err, name, opts), writeErr)
}

const (
	engineDefault = "pongo2"
	engineGeneric = "generic"
)

func (a *app) renderers(engine *gotemplate.Engine) (*render.Registry, error) {
	generic, err := a.goTemplateEngine()
	if err != nil {
		return nil, err
	}
	reg := render.NewRegistry()
	reg.MustRegister(engineDefault, engine)
	reg.MustRegister(engineGeneric, template.FromTemplateRenderer(generic))
	return reg, nil
}

// withLocalHint points at --local when the item variable derived from the
// template name cannot be used as a template identifier.
func withLocalHint(err error, name string, opts collection.Options) error {
	if err == nil || opts.Local != "" || opts.Unbound {
		return err
	}
	bound := collection.LocalName(name)
	if bound == "" || isIdentifier(bound) {
		return err
	}
	return fmt.Errorf("%w (item variable %q is not a valid identifier, set one with --local)", err, bound)
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}

func (a *app) templateName(cmd *cobra.Command, args []string, f renderFlags, engine *gotemplate.Engine) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if !f.interactive {
		return "", errors.New("template name required (or use --interactive)")
	}
	names, err := engine.Templates()
	if err != nil {
		return "", err
	}
	return a.pick(cmd.Context(), names)
}

func buildOptions(f renderFlags, cfg Config) (collection.Options, error) {
	var opts collection.Options

	locals, err := loadLocals(f.locals)
	if err != nil {
		return opts, err
	}
	extra, err := parseExtra(f.opts)
	if err != nil {
		return opts, err
	}
	if f.sanitize || cfg.Sanitize {
		if extra == nil {
			extra = make(map[string]any, 1)
		}
		extra[gotemplate.OptionSanitize] = true
	}

	opts.Locals = locals
	opts.Extra = extra
	opts.Local = f.local
	opts.Unbound = f.noLocal
	return opts, nil
}
