package main

import (
	"fmt"

	gotemplatepkg "github.com/goliatone/go-template"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-rendereach/pkg/render/template/gotemplate"
)

type app struct {
	configPath string
	templates  string
	extension  string
	verbose    bool

	cfg    Config
	logger *zap.Logger
	pick   templatePicker
}

func newApp() *app {
	return &app{
		logger: zap.NewNop(),
		pick:   surveyPicker,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Render a template once per item of a YAML or JSON list",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("templates") {
				cfg.Templates = a.templates
			}
			if cmd.Flags().Changed("ext") {
				cfg.Extension = a.extension
			}
			a.cfg = cfg
			return a.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $"+envConfig+")")
	flags.StringVarP(&a.templates, "templates", "t", "", "template directory")
	flags.StringVar(&a.extension, "ext", "", "template file extension")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRenderCmd(a), newTemplatesCmd(a))
	return root
}

func (a *app) initLogger() error {
	config := zap.NewProductionConfig()
	if a.cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(a.cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", a.cfg.LogLevel, err)
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}
	if a.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *app) engine() (*gotemplate.Engine, error) {
	return gotemplate.New(
		gotemplate.WithBaseDir(a.cfg.Templates),
		gotemplate.WithExtension(a.cfg.Extension),
		gotemplate.WithGlobalData(a.cfg.Globals),
	)
}

// goTemplateEngine builds the plain go-template engine behind --engine generic.
// It offers no routines, so every item takes the generic path.
func (a *app) goTemplateEngine() (*gotemplatepkg.Engine, error) {
	engine, err := gotemplatepkg.NewRenderer(
		gotemplatepkg.WithBaseDir(a.cfg.Templates),
		gotemplatepkg.WithExtension(a.cfg.Extension),
		gotemplatepkg.WithGlobalData(a.cfg.Globals),
	)
	if err != nil {
		return nil, fmt.Errorf("go-template engine: %w", err)
	}
	return engine, nil
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			names, err := engine.Templates()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
