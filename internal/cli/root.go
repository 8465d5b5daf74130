// Package cli implements kbctl, the operator command line for the knowledge base.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mcpadapter "github.com/kirillkom/hybrid-rag/internal/adapters/mcp"
	"github.com/kirillkom/hybrid-rag/internal/bootstrap"
	"github.com/kirillkom/hybrid-rag/internal/config"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
	"github.com/kirillkom/hybrid-rag/internal/observability/logging"
)

const version = "1.0.0"

// Services is everything the commands act on.
type Services struct {
	Knowledge ports.KnowledgeBaseManager
	History   ports.BuildHistoryReader
	Answerer  ports.QuestionAnswerer
	Searcher  ports.PassageSearcher
	Ingestor  ports.DocumentIngestor
	// Rebuilds is nil when no queue is configured; commands then rebuild in-process.
	Rebuilds ports.RebuildRequester
	ServeMCP func(ctx context.Context, in io.Reader, out io.Writer) error
	TopK     int
	Close    func()
}

// newServices is replaced in tests.
var newServices = servicesFromConfig

// flag name -> environment key read by config.Load
var envOverrides = map[string]string{
	"config":     "CONFIG_FILE",
	"corpus-dir": "CORPUS_DIR",
	"store-path": "KB_STORE_PATH",
	"log-level":  "LOG_LEVEL",
	"provider":   "LLM_PROVIDER",
}

// session holds the services built for one invocation.
type session struct {
	services *Services
}

func (s *session) close() {
	if s.services != nil && s.services.Close != nil {
		s.services.Close()
	}
}

func Execute() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	sess := &session{}
	err := newRootCommand(sess).ExecuteContext(ctx)
	sess.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(sess *session) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KBCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "kbctl",
		Short:        "Build, inspect and query the hybrid RAG knowledge base",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if v.GetBool("no-color") {
				color.NoColor = true
			}
			for flag, key := range envOverrides {
				if v.IsSet(flag) && v.GetString(flag) != "" {
					if err := os.Setenv(key, v.GetString(flag)); err != nil {
						return fmt.Errorf("apply --%s: %w", flag, err)
					}
				}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file (same keys as the environment)")
	flags.String("corpus-dir", "", "corpus directory (overrides CORPUS_DIR)")
	flags.String("store-path", "", "knowledge base blob path (overrides KB_STORE_PATH)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("provider", "", "model provider: ollama or openai")
	flags.Bool("json", false, "print JSON instead of text")
	flags.Bool("no-color", false, "disable colored output")
	for _, name := range []string{"config", "corpus-dir", "store-path", "log-level", "provider", "json", "no-color"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	// Commands resolve services lazily so --help never touches the network.
	load := func(cmd *cobra.Command) (*Services, error) {
		if sess.services != nil {
			return sess.services, nil
		}
		s, err := newServices(cmd.Context())
		if err != nil {
			return nil, err
		}
		sess.services = s
		return s, nil
	}
	out := func(cmd *cobra.Command) *printer {
		return newPrinter(cmd.OutOrStdout(), v.GetBool("json"))
	}

	root.AddCommand(
		newBuildCommand(load, out),
		newStatusCommand(load, out),
		newHistoryCommand(load, out),
		newSearchCommand(load, out),
		newAskCommand(load, out),
		newAddCommand(load, out),
		newMCPCommand(load),
	)
	return root
}

type serviceLoader func(cmd *cobra.Command) (*Services, error)

type printerFactory func(cmd *cobra.Command) *printer

func servicesFromConfig(ctx context.Context) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so stdout stays clean for results and the MCP stream.
	logger := logging.NewJSONLoggerTo(os.Stderr, "kbctl", cfg.LogLevel)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	mcpServer := mcpadapter.NewServer(mcpadapter.Dependencies{
		Answerer:  app.Query,
		Searcher:  app.Query,
		Knowledge: app.Knowledge,
	}, version, cfg.RAGTopK)

	// kbctl add decides on the rebuild itself, so uploads request none.
	s := &Services{
		Knowledge: app.Knowledge,
		History:   app.Knowledge,
		Answerer:  app.Query,
		Searcher:  app.Query,
		Ingestor:  app.NewIngestor(nil),
		ServeMCP:  mcpServer.ServeStdio,
		TopK:      cfg.RAGTopK,
		Close:     app.Close,
	}
	if app.Queue != nil {
		s.Rebuilds = app.Queue
	}
	return s, nil
}
