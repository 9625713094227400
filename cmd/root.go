package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/arong/lmsengine/internal/catalog"
	"github.com/arong/lmsengine/internal/config"
	"github.com/arong/lmsengine/internal/engine"
	"github.com/arong/lmsengine/internal/logging"
	"github.com/arong/lmsengine/internal/store"
)

var (
	v   = viper.New()
	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "lmsengine",
	Short: "Learning assignment and progression engine",
	Long: "lmsengine assigns courses and learning paths to users by rule, tracks step\n" +
		"progression from learner activity, derives assignment status and awards\n" +
		"points and badges.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("config")
		c, err := config.Load(v, file)
		if err != nil {
			return err
		}
		l, err := logging.New(c.Log)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		cfg, log = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default: ./lmsengine.yaml or $XDG_CONFIG_HOME/lmsengine/lmsengine.yaml)")
	pf.String("db", "", "Path to SQLite database file (overrides LMSENGINE_DB env var)")
	pf.String("catalog", "", "Path to the catalog YAML file")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("timezone", "", "IANA time zone for day boundaries")

	_ = v.BindPFlag("db", pf.Lookup("db"))
	_ = v.BindPFlag("catalog", pf.Lookup("catalog"))
	_ = v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("timezone", pf.Lookup("timezone"))

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pointsCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtime is everything a command needs to talk to the engine.
type runtime struct {
	cat *catalog.Catalog
	st  *store.Store
	eng *engine.Engine
}

func (r *runtime) Close() error {
	return r.st.Close()
}

// openRuntime loads the catalog, opens the store and builds the engine.
func openRuntime() (*runtime, error) {
	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureDir(cfg.DB); err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	eng := engine.Open(cat, st, engine.Options{
		Location: cfg.Location(),
		Status:   cfg.StatusConfig(),
		Workers:  cfg.Workers,
		Logger:   log,
	})
	log.Debug("runtime ready",
		zap.String("catalog", cfg.Catalog),
		zap.String("db", cfg.DB),
		zap.String("timezone", cfg.Location().String()))
	return &runtime{cat: cat, st: st, eng: eng}, nil
}

// parseAt reads a --at flag: RFC 3339, a bare date, or empty for now.
func parseAt(cmd *cobra.Command) (time.Time, error) {
	s, _ := cmd.Flags().GetString("at")
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, cfg.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("--at %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func addAtFlag(c *cobra.Command) {
	c.Flags().String("at", "", "Event time, RFC 3339 or YYYY-MM-DD (default: now)")
}
